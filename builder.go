package tokenauth

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	internalmetrics "github.com/MrEthical07/tokenauth/internal/metrics"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder is the composition root for an [Engine]. Configure it with the
// With* methods and call Build once.
//
// Without [Builder.WithSessionStore] or [Builder.WithRedis] the engine keeps
// sessions in a process-local [session.MemoryStore].
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store

	users     UserLookup
	verifier  PasswordVerifier
	auditSink AuditSink
	logger    *zerolog.Logger
	clock     Clock

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The Builder keeps a copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores sessions in Redis under Config.Session.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore supplies a ready session store. It cannot be combined
// with WithRedis.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithUserLookup sets the user directory. Required.
func (b *Builder) WithUserLookup(users UserLookup) *Builder {
	b.users = users
	return b
}

// WithPasswordVerifier overrides the verifier built from Config.Password.
func (b *Builder) WithPasswordVerifier(verifier PasswordVerifier) *Builder {
	b.verifier = verifier
	return b
}

// WithAuditSink sets where audit events go. Audit must also be enabled in
// Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for unexpected failures. Defaults to a no-op
// logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock overrides time.Now for token timestamps and session expiry.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can
// only be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user lookup required")
	}
	if b.store != nil && b.redis != nil {
		return nil, errors.New("WithSessionStore and WithRedis are mutually exclusive")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = b.logger.With().Str("component", "tokenauth").Logger()
	}

	// -------- PASSWORD VERIFIER --------
	verifier := b.verifier
	if verifier == nil {
		auto, err := password.NewAuto(cfg.Password.Algorithm, cfg.Password.argon2(), cfg.Password.BcryptCost)
		if err != nil {
			return nil, err
		}
		verifier = auto
	}

	// -------- SESSION STORE --------
	sessionCfg := session.Config{
		MaxSessionsPerUser: cfg.Session.MaxSessionsPerUser,
		Lifetime:           cfg.Session.Lifetime,
		Now:                session.Clock(clock),
	}
	store := b.store
	switch {
	case store != nil:
	case b.redis != nil:
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, sessionCfg)
	default:
		store = session.NewMemoryStore(sessionCfg)
	}

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewCodec(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		MaxFutureIAT:  cfg.JWT.MaxFutureIAT,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}

	users := b.users
	tokens := flows.TokenIssuer{
		GenerateAccessToken:  codec.GenerateAccessToken,
		GenerateRefreshToken: codec.GenerateRefreshToken,
	}
	metadata := func(ctx context.Context) session.Metadata {
		return session.Metadata{
			UserAgent: userAgentFromContext(ctx),
			IPAddress: clientIPFromContext(ctx),
		}
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		sessions: store,
		codec:    codec,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:       cfg.Metrics.Enabled,
			EnableLatency: cfg.Metrics.EnableLatencyHistograms,
		}),
		logger: logger,
		clock:  clock,
	}

	engine.flows = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			FindUser: func(ctx context.Context, email string) (flows.LoginUser, bool, error) {
				rec, found, err := users.FindByEmail(ctx, email)
				if err != nil || !found {
					return flows.LoginUser{}, found, err
				}
				return flows.LoginUser{
					ID:           rec.ID,
					Email:        rec.Email,
					PasswordHash: rec.PasswordHash,
					Role:         rec.Role,
				}, true, nil
			},
			ComparePassword: verifier.Compare,
			Tokens:          tokens,
			Metadata:        metadata,
			SessionStore:    store,
		},
		Refresh: flows.RefreshDeps{
			VerifyRefreshToken: codec.VerifyRefreshToken,
			Tokens:             tokens,
			Metadata:           metadata,
			SessionStore:       store,
		},
		Logout: flows.LogoutDeps{
			VerifyRefreshToken: codec.VerifyRefreshToken,
			SessionStore:       store,
		},
		Sessions: flows.SessionDeps{
			SessionStore: store,
		},
		Verify: flows.VerifyDeps{
			VerifyAccessToken: codec.VerifyAccessToken,
		},
	})

	b.built = true

	return engine, nil
}
