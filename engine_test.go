package shopauth_test

import (
	"context"
	"encoding/base32"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/directory"
	"github.com/MrEthical07/shopauth/password"
	"github.com/MrEthical07/shopauth/session"
	"github.com/MrEthical07/shopauth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	totpSecret = []byte("12345678901234567890")
	fixedNow   = time.Unix(1700000000, 0)
)

type engineFixture struct {
	engine *shopauth.Engine
	dir    *directory.Memory
	mr     *miniredis.Miniredis
	events *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []shopauth.AuditEvent
}

func (l *eventLog) Emit(_ context.Context, e shopauth.AuditEvent) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func testConfig() shopauth.Config {
	cfg := shopauth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.DropIfFull = false
	return cfg
}

func newEngine(t *testing.T) *engineFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dir := directory.NewMemory()
	events := &eventLog{}
	engine, err := shopauth.New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserDirectory(dir).
		WithAuditSink(events).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(func() time.Time { return fixedNow }).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return &engineFixture{engine: engine, dir: dir, mr: mr, events: events}
}

func (f *engineFixture) addUser(t *testing.T, email, plaintext string, admin bool, secret []byte) string {
	t.Helper()
	hasher, err := password.NewArgon2(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	id, err := f.dir.Add(shopauth.UserRecord{Email: email, PasswordHash: hash, Admin: admin, TOTPSecret: secret})
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	return id
}

func currentCode(t *testing.T) string {
	t.Helper()
	code, err := shopauth.TOTPCode(totpSecret, fixedNow, shopauth.DefaultConfig().TOTP)
	if err != nil {
		t.Fatalf("totp code: %v", err)
	}
	return code
}

func TestAuthenticateWithoutSecondFactor(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	id := f.addUser(t, "ada@example.com", "correct horse", false, nil)

	out, err := f.engine.Authenticate(ctx, " Ada@Example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if out.Kind != shopauth.OutcomeSuccess || out.Session == nil || out.PreAuthentication != nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Session.UserID() != id {
		t.Fatalf("session for %q, want %q", out.Session.UserID(), id)
	}
	if _, err := f.engine.ResolveCustomer(ctx, out.Session.Token()); err != nil {
		t.Fatalf("customer token does not resolve: %v", err)
	}
	if got := f.mr.TTL(session.KindAuthenticated.Key(out.Session.Token())); got != 7*24*time.Hour {
		t.Fatalf("expected customer ttl, got %s", got)
	}
	// The intermediate pre-authentication record is gone.
	if keys := f.mr.Keys(); len(keys) != 1 {
		t.Fatalf("expected only the authenticated record, got %v", keys)
	}
}

func TestAuthenticateAdministrator(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.addUser(t, "root@example.com", "admin password", true, nil)

	out, err := f.engine.Authenticate(ctx, "root@example.com", "admin password")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if out.Kind != shopauth.OutcomeSuccessAdministrative {
		t.Fatalf("expected administrative success, got %s", out.Kind)
	}
	if _, err := f.engine.ResolveAdministrator(ctx, out.Session.Token()); err != nil {
		t.Fatalf("administrator token does not resolve: %v", err)
	}
	if _, err := f.engine.ResolveCustomer(ctx, out.Session.Token()); !errors.Is(err, shopauth.ErrSessionNotFound) {
		t.Fatalf("administrator token resolved as customer: %v", err)
	}
	if got := f.mr.TTL(session.KindAuthenticated.Key(out.Session.Token())); got != 2*time.Hour {
		t.Fatalf("expected administrator ttl, got %s", got)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.addUser(t, "ada@example.com", "correct horse", false, nil)
	if _, err := f.dir.Add(shopauth.UserRecord{Email: "nocred@example.com"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	cases := []struct{ email, pass string }{
		{"nobody@example.com", "correct horse"},
		{"ada@example.com", "wrong horse"},
		{"nocred@example.com", "anything at all"},
	}
	for _, c := range cases {
		out, err := f.engine.Authenticate(ctx, c.email, c.pass)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", c.email, err)
		}
		if out.Kind != shopauth.OutcomeFailure || out.Session != nil || out.PreAuthentication != nil {
			t.Fatalf("%s: expected failure, got %+v", c.email, out)
		}
	}
	if keys := f.mr.Keys(); len(keys) != 0 {
		t.Fatalf("failed logins must not create sessions, got %v", keys)
	}
	if got := f.engine.MetricsSnapshot().Counters[shopauth.MetricLoginFailure]; got != 3 {
		t.Fatalf("expected 3 login failures, got %d", got)
	}
}

func TestSecondFactorFlow(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	id := f.addUser(t, "ada@example.com", "correct horse", false, totpSecret)

	out, err := f.engine.Authenticate(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if out.Kind != shopauth.OutcomePartial || out.PreAuthentication == nil {
		t.Fatalf("expected partial outcome, got %+v", out)
	}
	pre := out.PreAuthentication
	if got := f.mr.TTL(session.KindPreAuthentication.Key(pre.Token())); got != 300*time.Second {
		t.Fatalf("expected 300s pre-authentication ttl, got %s", got)
	}

	methods, err := f.engine.SecondFactorMethods(ctx, pre)
	if err != nil || len(methods) != 1 || methods[0] != shopauth.SecondFactorTOTP {
		t.Fatalf("unexpected methods %v err=%v", methods, err)
	}

	// A wrong code fails without consuming the pre-authentication session.
	failed, err := f.engine.AuthenticateSecondFactor(ctx, pre, "000000")
	if err != nil || failed.Kind != shopauth.OutcomeFailure {
		t.Fatalf("expected failure outcome, got %+v err=%v", failed, err)
	}
	if _, err := f.engine.ResolvePreAuthentication(ctx, pre.Token()); err != nil {
		t.Fatalf("pre-authentication session lost after wrong code: %v", err)
	}

	done, err := f.engine.AuthenticateSecondFactor(ctx, pre, currentCode(t))
	if err != nil {
		t.Fatalf("second factor failed: %v", err)
	}
	if done.Kind != shopauth.OutcomeSuccess || done.Session.UserID() != id {
		t.Fatalf("unexpected outcome %+v", done)
	}
	if _, err := f.engine.ResolvePreAuthentication(ctx, pre.Token()); !errors.Is(err, shopauth.ErrSessionNotFound) {
		t.Fatalf("pre-authentication token survived promotion: %v", err)
	}

	// Replaying the promotion with the consumed session fails closed.
	if _, err := f.engine.AuthenticateSecondFactor(ctx, pre, currentCode(t)); !errors.Is(err, shopauth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on replay, got %v", err)
	}
}

func TestPreAuthenticationExpires(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.addUser(t, "ada@example.com", "correct horse", false, totpSecret)

	out, err := f.engine.Authenticate(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	f.mr.FastForward(301 * time.Second)

	if _, err := f.engine.ResolvePreAuthentication(ctx, out.PreAuthentication.Token()); !errors.Is(err, shopauth.ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.addUser(t, "ada@example.com", "correct horse", false, nil)

	out, err := f.engine.Authenticate(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if err := f.engine.Logout(ctx, out.Session); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := f.engine.Logout(ctx, out.Session); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
	if _, err := f.engine.ResolveAuthenticated(ctx, out.Session.Token()); !errors.Is(err, shopauth.ErrSessionNotFound) {
		t.Fatalf("token valid after logout: %v", err)
	}
}

func TestRecordAttempt(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		if err := f.engine.RecordAttempt(ctx, "198.51.100.4"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := f.engine.RecordAttempt(ctx, "198.51.100.4"); !errors.Is(err, shopauth.ErrBruteforceLockout) {
		t.Fatalf("expected lockout, got %v", err)
	}
	if err := f.engine.RecordAttempt(ctx, ""); !errors.Is(err, shopauth.ErrMissingClientIdentity) {
		t.Fatalf("expected ErrMissingClientIdentity, got %v", err)
	}
}

func TestRegistrationFlow(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	req := shopauth.RegistrationRequest{Email: "New@Example.com", Forename: "New", Surname: "User", Address: "2 Lane"}
	reg, err := f.engine.BeginRegistration(ctx, req)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if f.dir.Len() != 0 {
		t.Fatal("begin must not write to the directory")
	}
	if got := f.mr.TTL(session.KindRegistration.Key(reg.Token())); got != 600*time.Second {
		t.Fatalf("expected 600s registration ttl, got %s", got)
	}

	if _, err := f.engine.CompleteRegistration(ctx, reg, "short"); !errors.Is(err, shopauth.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	id, err := f.engine.CompleteRegistration(ctx, reg, "long enough")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := f.engine.ResolveRegistration(ctx, reg.Token()); !errors.Is(err, shopauth.ErrSessionNotFound) {
		t.Fatalf("registration token survived commit: %v", err)
	}

	user, err := f.dir.FindByID(ctx, id)
	if err != nil || user.Email != "new@example.com" || user.Admin {
		t.Fatalf("unexpected user %#v err=%v", user, err)
	}

	out, err := f.engine.Authenticate(ctx, "new@example.com", "long enough")
	if err != nil || out.Kind != shopauth.OutcomeSuccess {
		t.Fatalf("new user cannot log in: %+v err=%v", out, err)
	}
}

func TestBeginRegistrationValidation(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.addUser(t, "taken@example.com", "whatever pass", false, nil)

	if _, err := f.engine.BeginRegistration(ctx, shopauth.RegistrationRequest{
		Email: "taken@example.com", Forename: "a", Surname: "b", Address: "c",
	}); !errors.Is(err, shopauth.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	bad := []shopauth.RegistrationRequest{
		{Email: "not-an-email", Forename: "a", Surname: "b", Address: "c"},
		{Email: "Name <x@example.com>", Forename: "a", Surname: "b", Address: "c"},
		{Email: "x@example.com", Forename: " ", Surname: "b", Address: "c"},
		{Email: "x@example.com", Forename: "a", Surname: "b"},
	}
	for _, req := range bad {
		if _, err := f.engine.BeginRegistration(ctx, req); !errors.Is(err, shopauth.ErrInvalidRegistration) {
			t.Fatalf("%+v: expected ErrInvalidRegistration, got %v", req, err)
		}
	}
}

func TestCompleteRegistrationRollsBack(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	reg, err := f.engine.BeginRegistration(ctx, shopauth.RegistrationRequest{
		Email: "new@example.com", Forename: "a", Surname: "b", Address: "c",
	})
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	failing := &failingCredentialDirectory{Memory: f.dir}
	engine := rebuildWithDirectory(t, f, failing)

	if _, err := engine.CompleteRegistration(ctx, reg, "long enough"); !errors.Is(err, shopauth.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if _, err := f.dir.FindByEmail(ctx, "new@example.com"); !errors.Is(err, shopauth.ErrUserNotFound) {
		t.Fatalf("orphaned user left behind: %v", err)
	}
	if _, err := engine.ResolveRegistration(ctx, reg.Token()); err != nil {
		t.Fatalf("registration should survive a failed commit: %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[shopauth.MetricRegistrationRollback]; got != 1 {
		t.Fatalf("expected one rollback, got %d", got)
	}
}

func TestSecondFactorEnrolment(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	id := f.addUser(t, "ada@example.com", "correct horse", false, nil)

	enrolment, err := f.engine.NewSecondFactor(ctx, id)
	if err != nil {
		t.Fatalf("new second factor failed: %v", err)
	}
	if enrolment.Secret == "" || !strings.HasPrefix(enrolment.URI, "otpauth://totp/") {
		t.Fatalf("unexpected enrolment %+v", enrolment)
	}
	if user, _ := f.dir.FindByID(ctx, id); user.HasSecondFactor() {
		t.Fatal("generating a secret must not store it")
	}

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(enrolment.Secret)
	if err != nil {
		t.Fatalf("secret is not base32: %v", err)
	}

	if err := f.engine.ConfirmSecondFactor(ctx, id, enrolment.Secret, wrongCode(t, raw)); !errors.Is(err, shopauth.ErrSecondFactorFailed) {
		t.Fatalf("expected ErrSecondFactorFailed, got %v", err)
	}
	out, err := f.engine.Authenticate(ctx, "ada@example.com", "correct horse")
	if err != nil || out.Kind != shopauth.OutcomeSuccess {
		t.Fatalf("a rejected confirmation must leave login single-factor, got %+v err=%v", out, err)
	}

	if err := f.engine.ConfirmSecondFactor(ctx, id, "not base32!", "123456"); !errors.Is(err, shopauth.ErrInvalidSecondFactorSecret) {
		t.Fatalf("expected ErrInvalidSecondFactorSecret, got %v", err)
	}

	code, err := shopauth.TOTPCode(raw, fixedNow, shopauth.DefaultConfig().TOTP)
	if err != nil {
		t.Fatalf("totp code: %v", err)
	}
	if err := f.engine.ConfirmSecondFactor(ctx, id, strings.ToLower(enrolment.Secret), code); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	out, err = f.engine.Authenticate(ctx, "ada@example.com", "correct horse")
	if err != nil || out.Kind != shopauth.OutcomePartial {
		t.Fatalf("expected partial after enrolment, got %+v err=%v", out, err)
	}
	out, err = f.engine.AuthenticateSecondFactor(ctx, out.PreAuthentication, code)
	if err != nil || out.Kind != shopauth.OutcomeSuccess {
		t.Fatalf("enrolled code does not log in: %+v err=%v", out, err)
	}
}

func TestNewSecondFactorUnknownUser(t *testing.T) {
	f := newEngine(t)
	if _, err := f.engine.NewSecondFactor(context.Background(), "missing"); !errors.Is(err, shopauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// wrongCode returns a well-formed code that is not valid at fixedNow.
func wrongCode(t *testing.T, secret []byte) string {
	t.Helper()
	cfg := shopauth.DefaultConfig().TOTP
	valid := map[string]bool{}
	for step := -cfg.Skew; step <= cfg.Skew; step++ {
		c, err := shopauth.TOTPCode(secret, fixedNow.Add(time.Duration(step*cfg.Period)*time.Second), cfg)
		if err != nil {
			t.Fatalf("totp code: %v", err)
		}
		valid[c] = true
	}
	for _, c := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[c] {
			return c
		}
	}
	t.Fatal("no invalid code found")
	return ""
}

func TestAuditTrail(t *testing.T) {
	f := newEngine(t)
	ctx := shopauth.WithClientIP(context.Background(), "192.0.2.1")
	f.addUser(t, "ada@example.com", "correct horse", false, nil)

	if _, err := f.engine.Authenticate(ctx, "ada@example.com", "wrong horse"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	out, err := f.engine.Authenticate(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := f.engine.Logout(ctx, out.Session); err != nil {
		t.Fatalf("logout: %v", err)
	}
	f.engine.Close()

	got := f.events.types()
	want := []string{"login.failure", "login.success", "logout"}
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
	for _, e := range f.events.events {
		if e.IP != "192.0.2.1" || e.ID == "" {
			t.Fatalf("event missing ip or id: %+v", e)
		}
	}
}

func TestCompleteRegistrationRollbackFailure(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	reg, err := f.engine.BeginRegistration(ctx, shopauth.RegistrationRequest{
		Email: "new@example.com", Forename: "a", Surname: "b", Address: "c",
	})
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	stuck := &undeletableDirectory{failingCredentialDirectory{Memory: f.dir}}
	engine := rebuildWithDirectory(t, f, stuck)

	if _, err := engine.CompleteRegistration(ctx, reg, "long enough"); !errors.Is(err, shopauth.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	// The user could not be removed, so nothing was rolled back.
	if got := engine.MetricsSnapshot().Counters[shopauth.MetricRegistrationRollback]; got != 0 {
		t.Fatalf("failed rollback counted as a rollback: %d", got)
	}
	if _, err := f.dir.FindByEmail(ctx, "new@example.com"); err != nil {
		t.Fatalf("expected the orphaned user to remain: %v", err)
	}
}

type undeletableDirectory struct {
	failingCredentialDirectory
}

func (d *undeletableDirectory) DeleteUser(context.Context, string) error {
	return errors.New("users table locked")
}

type failingCredentialDirectory struct {
	*directory.Memory
}

func (d *failingCredentialDirectory) SetCredential(context.Context, string, string) error {
	return errors.New("credential table unavailable")
}

func rebuildWithDirectory(t *testing.T, f *engineFixture, dir shopauth.UserDirectory) *shopauth.Engine {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: f.mr.Addr()})
	engine, err := shopauth.New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserDirectory(dir).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
	})
	return engine
}

func TestBuildWithConnectedStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := store.Connect(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Redis().Close() })

	engine, err := shopauth.New().
		WithConfig(testConfig()).
		WithStore(client).
		WithUserDirectory(directory.NewMemory()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if err := engine.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if _, err := shopauth.New().WithUserDirectory(directory.NewMemory()).Build(); err == nil {
		t.Fatal("expected build without a store to fail")
	}
}
