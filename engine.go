package tokenauth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	internalmetrics "github.com/MrEthical07/tokenauth/internal/metrics"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/session"
	"github.com/rs/zerolog"
)

// Engine runs the login, refresh and logout protocol over a token codec and a
// session store. Build one with [New]; it is safe for concurrent use.
//
// Expected failures come back as *[AuthError] values. Any other error is an
// unexpected backend or codec failure and is wrapped with context.
type Engine struct {
	config   Config
	flows    flows.Service
	sessions session.Store
	codec    *jwt.Codec
	audit    *internalaudit.Dispatcher
	metrics  *internalmetrics.Metrics
	logger   zerolog.Logger
	clock    Clock
}

// Close flushes buffered audit events and stops the dispatcher. It does not
// close the session store or any client passed to the Builder.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters. With metrics disabled the
// maps are empty.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// SessionLifetime is how long a refresh session lives from creation. The HTTP
// adapter uses it as the refresh cookie Max-Age.
func (e *Engine) SessionLifetime() time.Duration {
	return e.config.Session.Lifetime
}

// AccessTTL is the lifetime of issued access tokens.
func (e *Engine) AccessTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Login authenticates email and password and opens a new refresh session.
// User agent and client ip are taken from ctx (see [WithUserAgent] and
// [WithClientIP]).
//
// An unknown email and a wrong password both return [ErrInvalidCredentials].
// If the user already has the maximum number of sessions, the oldest one is
// evicted to make room.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res := e.flows.Login(ctx, email, password)
	e.metrics.Observe(MetricLoginLatency, time.Since(start))

	if res.Failure != flows.LoginFailureNone {
		reason := res.Failure.Reason()
		if res.Failure.Expected() {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, res.User.ID, ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"identifier": email,
					"reason":     reason,
				}
			})
			e.logger.Debug().Str("reason", reason).Msg("login rejected")
			return nil, ErrInvalidCredentials
		}

		e.metricInc(MetricInternalError)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.ID, res.Err, func() map[string]string {
			return map[string]string{
				"identifier": email,
				"reason":     reason,
			}
		})
		e.logger.Error().Err(res.Err).Str("stage", reason).Msg("login failed")
		return nil, fmt.Errorf("tokenauth: login (%s): %w", reason, res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.User.ID, nil, nil)

	return &LoginResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User: PublicUser{
			ID:    res.User.ID,
			Email: res.User.Email,
			Role:  res.User.Role,
		},
	}, nil
}

// Refresh rotates refreshToken: the presented token is revoked and a new
// access/refresh pair is returned, atomically with respect to other calls
// for the same user.
//
// A token that fails signature or expiry checks returns
// [ErrInvalidRefreshToken]. A well-formed token that is no longer a live
// session (logged out, evicted, expired or already rotated) returns
// [ErrRevokedRefreshToken]. Of several concurrent refreshes with the same
// token exactly one succeeds.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res := e.flows.Refresh(ctx, refreshToken)
	e.metrics.Observe(MetricRefreshLatency, time.Since(start))

	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrInvalidRefreshToken, nil)
		return nil, ErrInvalidRefreshToken
	case flows.RefreshFailureRevoked:
		e.metricInc(MetricRefreshRevoked)
		e.emitAudit(ctx, auditEventRefreshRevoked, false, res.UserID, ErrRevokedRefreshToken, nil)
		e.logger.Info().Str("user_id", res.UserID).Msg("refresh with revoked token")
		return nil, ErrRevokedRefreshToken
	default:
		e.metricInc(MetricInternalError)
		e.emitAudit(ctx, auditEventRefreshError, false, res.UserID, res.Err, nil)
		e.logger.Error().Err(res.Err).Str("user_id", res.UserID).Msg("refresh failed")
		return nil, fmt.Errorf("tokenauth: refresh: %w", res.Err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, nil, nil)

	return &RefreshResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}, nil
}

// Logout revokes the session behind refreshToken. It is best-effort: an
// empty, invalid, expired or unknown token is silently ignored. Only an
// unexpected store failure is returned.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, refreshToken)
	if res.Err != nil {
		e.metricInc(MetricInternalError)
		e.logger.Error().Err(res.Err).Str("user_id", res.UserID).Msg("logout failed")
		return fmt.Errorf("tokenauth: logout: %w", res.Err)
	}
	if !res.Decoded {
		return nil
	}

	e.metricInc(MetricLogout)
	if res.Revoked {
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutSession, true, res.UserID, nil, func() map[string]string {
		if res.Revoked {
			return map[string]string{"revoked": "true"}
		}
		return map[string]string{"revoked": "false"}
	})
	return nil
}

// LogoutAll revokes every session of userID, expired or not, and returns how
// many were removed.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	n, err := e.flows.LogoutAll(ctx, userID)
	if err != nil {
		e.metricInc(MetricInternalError)
		e.logger.Error().Err(err).Str("user_id", userID).Msg("logout all failed")
		return 0, fmt.Errorf("tokenauth: logout all: %w", err)
	}

	e.metricInc(MetricLogoutAll)
	e.metricAdd(MetricSessionInvalidated, n)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, nil, func() map[string]string {
		return map[string]string{"sessions": strconv.Itoa(n)}
	})
	return n, nil
}

// GetSessionCount returns the number of live sessions of userID.
func (e *Engine) GetSessionCount(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	n, err := e.flows.ActiveSessionCount(ctx, userID)
	if err != nil {
		e.metricInc(MetricInternalError)
		return 0, fmt.Errorf("tokenauth: session count: %w", err)
	}
	return n, nil
}

// VerifyAccess checks an access token's signature and expiry. It does not
// consult the session store.
func (e *Engine) VerifyAccess(_ context.Context, accessToken string) (*jwt.Payload, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	payload, ok := e.flows.VerifyAccess(accessToken)
	if !ok {
		e.metricInc(MetricAccessVerifyFailure)
		return nil, ErrInvalidAccessToken
	}
	return &payload, nil
}

type pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Health pings the session store when it supports it and returns the round
// trip. The in-memory store is always healthy.
func (e *Engine) Health(ctx context.Context) (time.Duration, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	p, ok := e.sessions.(pinger)
	if !ok {
		return 0, nil
	}
	return p.Ping(ctx)
}
