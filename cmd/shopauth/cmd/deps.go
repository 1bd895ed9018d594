package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alicebob/miniredis/v2"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/directory"
	"github.com/MrEthical07/shopauth/directory/sqlite"
	"github.com/MrEthical07/shopauth/store"
)

// userDirectory is what the commands need from either directory backend.
type userDirectory interface {
	shopauth.UserDirectory
	shopauth.SecondFactorStore
	SetAdmin(ctx context.Context, userID string, admin bool) error
}

type deps struct {
	engine    *shopauth.Engine
	directory userDirectory
	closers   []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func openDirectory(ctx context.Context, logger *slog.Logger) (userDirectory, func(), error) {
	if sqlitePath == "" {
		logger.Warn("using in-memory user directory; users are lost on exit")
		return directory.NewMemory(), func() {}, nil
	}
	dir, err := sqlite.Open(ctx, sqlitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open user directory: %w", err)
	}
	return dir, func() { _ = dir.Close() }, nil
}

// connectStore dials --redis-url. Without one it starts an in-process
// miniredis, allowed only under --dev or for ephemeral commands that never
// touch sessions.
func connectStore(ctx context.Context, logger *slog.Logger, ephemeral bool) (*store.Client, func(), error) {
	if redisURL != "" {
		client, err := store.Connect(ctx, redisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect session store: %w", err)
		}
		return client, func() { _ = client.Redis().Close() }, nil
	}
	if !devMode && !ephemeral {
		return nil, nil, errNeedsRedis
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	if devMode {
		logger.Warn("using in-process miniredis; sessions are lost on exit", "addr", mr.Addr())
	}
	client, err := store.Connect(ctx, "redis://"+mr.Addr())
	if err != nil {
		mr.Close()
		return nil, nil, fmt.Errorf("connect miniredis: %w", err)
	}
	return client, func() {
		_ = client.Redis().Close()
		mr.Close()
	}, nil
}

// openDeps wires the engine. cfg is adjusted by the caller before the call.
func openDeps(ctx context.Context, logger *slog.Logger, cfg shopauth.Config, ephemeral bool) (*deps, error) {
	d := &deps{}

	dir, closeDir, err := openDirectory(ctx, logger)
	if err != nil {
		return nil, err
	}
	d.directory = dir
	d.closers = append(d.closers, closeDir)

	client, closeStore, err := connectStore(ctx, logger, ephemeral)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.closers = append(d.closers, closeStore)

	engine, err := shopauth.New().
		WithConfig(cfg).
		WithStore(client).
		WithUserDirectory(dir).
		WithAuditSink(shopauth.NewLogSink(logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	d.engine = engine
	d.closers = append(d.closers, engine.Close)
	return d, nil
}

var (
	errNeedsSQLite = errors.New("this command needs a persistent directory: set --sqlite or SHOPAUTH_SQLITE")
	errNeedsRedis  = errors.New("no session store: set --redis-url or REDIS_URL, or pass --dev for an in-process one")
)
