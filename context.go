package shopauth

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's address to ctx. The engine copies it
// into audit events; the bruteforce guard takes it explicitly instead.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
