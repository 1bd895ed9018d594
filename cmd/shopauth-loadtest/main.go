package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/shopauth/session"
	"github.com/MrEthical07/shopauth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of pre-authentication sessions to create")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "lookups in the get phase")
		contenders  = flag.Int("contenders", 2, "concurrent promotions attempted per session")
		redisURL    = flag.String("redis-url", "", "redis URL; if empty, REDIS_URL env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *contenders <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, ops, and contenders must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	client, cleanup, err := connect(*redisURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	sessionStore := session.NewStore(store.NewClient(client), session.DefaultPolicy())

	created, createStats := runCreatePhase(ctx, sessionStore, *sessions, *concurrency)
	getStats := runGetPhase(ctx, sessionStore, created, *ops, *concurrency)
	promoteStats, wins := runPromotePhase(ctx, sessionStore, created, *contenders, *concurrency)

	fmt.Println("---- results ----")
	printStats("create", createStats)
	printStats("get", getStats)
	printStats("promote", promoteStats)
	fmt.Printf("promote: sessions=%d winners=%d\n", len(created), wins)
	if wins != int64(len(created)) {
		fmt.Fprintln(os.Stderr, "promotion was not exactly-once")
		os.Exit(1)
	}
}

func connect(url string) (redis.UniversalClient, func(), error) {
	if url == "" {
		url = os.Getenv("REDIS_URL")
	}
	if url == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	fmt.Printf("using redis at %s\n", opts.Addr)
	return client, func() { _ = client.Close() }, nil
}

// parallel runs fn for i in [0, n) across workers goroutines and collects
// per-call latencies.
func parallel(n, workers int, fn func(worker, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, n)
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			local := make([]time.Duration, 0, n/workers+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= n {
					break
				}
				t0 := time.Now()
				if err := fn(worker, i); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runCreatePhase(ctx context.Context, s *session.Store, n, workers int) ([]*session.PreAuthenticationSession, phaseStats) {
	out := make([]*session.PreAuthenticationSession, n)
	stats := parallel(n, workers, func(_, i int) error {
		pre, err := s.CreatePreAuthentication(ctx, "user-"+strconv.Itoa(i))
		out[i] = pre
		return err
	})

	created := out[:0]
	for _, pre := range out {
		if pre != nil {
			created = append(created, pre)
		}
	}
	return created, stats
}

func runGetPhase(ctx context.Context, s *session.Store, created []*session.PreAuthenticationSession, ops, workers int) phaseStats {
	if len(created) == 0 {
		return phaseStats{}
	}
	rngs := make([]*rand.Rand, workers)
	for w := range rngs {
		rngs[w] = rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*7919))
	}
	return parallel(ops, workers, func(worker, _ int) error {
		pre := created[rngs[worker].Intn(len(created))]
		_, err := s.GetPreAuthentication(ctx, pre.Token())
		return err
	})
}

// runPromotePhase races contenders promotions of every session. Losing a
// race is expected and not counted as a failure.
func runPromotePhase(ctx context.Context, s *session.Store, created []*session.PreAuthenticationSession, contenders, workers int) (phaseStats, int64) {
	var wins int64
	stats := parallel(len(created)*contenders, workers, func(_, i int) error {
		pre := created[i/contenders]
		_, err := pre.Promote(ctx, false)
		switch {
		case err == nil:
			atomic.AddInt64(&wins, 1)
			return nil
		case errors.Is(err, session.ErrNotFound):
			return nil
		default:
			return err
		}
	})
	return stats, wins
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
