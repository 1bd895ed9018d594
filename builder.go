package shopauth

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/MrEthical07/shopauth/internal/audit"
	"github.com/MrEthical07/shopauth/internal/limiters"
	"github.com/MrEthical07/shopauth/password"
	"github.com/MrEthical07/shopauth/session"
	"github.com/MrEthical07/shopauth/store"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	store     *store.Client
	directory UserDirectory
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the session store connection. Either WithRedis or
// WithStore is required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets an already connected session store, as returned by
// store.Connect. It takes precedence over WithRedis.
func (b *Builder) WithStore(client *store.Client) *Builder {
	b.store = client
	return b
}

// WithUserDirectory sets the primary user store. Required.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink sets where audit events go. Without one, events are
// dispatched and discarded.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine's logger. The default writes JSON to stderr.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for TOTP verification.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil && b.store == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	client := b.store
	if client == nil {
		client = store.NewClient(b.redis)
	}

	engine := &Engine{
		config: cfg,
		store:  client,
		sessions: session.NewStore(client, session.Policy{
			RegistrationTTL:      cfg.Session.RegistrationTTL,
			PreAuthenticationTTL: cfg.Session.PreAuthenticationTTL,
			CustomerTTL:          cfg.Session.CustomerTTL,
			AdministratorTTL:     cfg.Session.AdministratorTTL,
			MaxCreateAttempts:    cfg.Session.MaxCreateAttempts,
		}),
		guard: limiters.NewBruteforceGuard(client, limiters.BruteforceConfig{
			Threshold: cfg.Bruteforce.Threshold,
			Window:    cfg.Bruteforce.Window,
			Penalty:   cfg.Bruteforce.Penalty,
		}),
		directory: b.directory,
		hasher:    hasher,
		policy: password.Policy{
			MinLength: cfg.Password.MinLength,
			MaxLength: cfg.Password.MaxLength,
		},
		totp: newTOTPVerifier(cfg.TOTP),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		now:     clock,
	}

	b.built = true
	return engine, nil
}
