package session

import (
	"context"
	"testing"

	"github.com/MrEthical07/shopauth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func benchStore(b *testing.B) *Store {
	b.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewStore(store.NewClient(rdb), DefaultPolicy())
}

func BenchmarkCreatePreAuthentication(b *testing.B) {
	s := benchStore(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := s.CreatePreAuthentication(ctx, "user-1"); err != nil {
			b.Fatalf("create failed: %v", err)
		}
	}
}

func BenchmarkGetAuthenticatedParallel(b *testing.B) {
	s := benchStore(b)
	ctx := context.Background()
	pre, err := s.CreatePreAuthentication(ctx, "user-1")
	if err != nil {
		b.Fatalf("create failed: %v", err)
	}
	sess, err := pre.Promote(ctx, false)
	if err != nil {
		b.Fatalf("promote failed: %v", err)
	}
	token := sess.Token()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.GetAuthenticated(ctx, token); err != nil {
				b.Errorf("get failed: %v", err)
				return
			}
		}
	})
}

func BenchmarkPromote(b *testing.B) {
	s := benchStore(b)
	ctx := context.Background()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		pre, err := s.CreatePreAuthentication(ctx, "user-1")
		if err != nil {
			b.Fatalf("create failed: %v", err)
		}
		b.StartTimer()
		if _, err := pre.Promote(ctx, false); err != nil {
			b.Fatalf("promote failed: %v", err)
		}
	}
}
