package session

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultLifetime is how long a session stays valid after it is stored.
	DefaultLifetime = 7 * 24 * time.Hour
	// DefaultMaxSessionsPerUser caps concurrent sessions per user.
	DefaultMaxSessionsPerUser = 5
)

// ErrStoreUnavailable wraps backend failures (network, Redis errors).
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrStoreCorrupt is returned when a backend replies with data the store
// cannot interpret.
var ErrStoreCorrupt = errors.New("session store corrupt")

// Store is the sole owner of session state. Every method is keyed by user
// and serialized against other calls for the same user.
//
// Returned errors only signal unexpected failures; "not found" style results
// are reported through the bool/int return values.
type Store interface {
	// Store drops expired sessions, evicts the oldest one if the user is at
	// capacity, then records token as the newest session. A token that is
	// already live is moved rather than duplicated, so re-storing it at
	// capacity still costs the oldest session its slot.
	Store(ctx context.Context, userID, token string, meta Metadata) error
	// Validate drops expired sessions and reports whether token is live.
	Validate(ctx context.Context, userID, token string) (bool, error)
	// Revoke removes exactly token and reports whether it was present.
	Revoke(ctx context.Context, userID, token string) (bool, error)
	// RevokeAllForUser removes every session regardless of expiry.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	// ActiveCount drops expired sessions and returns how many remain.
	ActiveCount(ctx context.Context, userID string) (int, error)
	// Rotate replaces oldToken with newToken as one atomic step. It returns
	// false and changes nothing (besides expiry cleanup) when oldToken is
	// not live.
	Rotate(ctx context.Context, userID, oldToken, newToken string, meta Metadata) (bool, error)
}

// Config tunes a store. Zero values fall back to the package defaults.
type Config struct {
	MaxSessionsPerUser int
	Lifetime           time.Duration
	Now                Clock
}

func (c Config) withDefaults() Config {
	if c.MaxSessionsPerUser <= 0 {
		c.MaxSessionsPerUser = DefaultMaxSessionsPerUser
	}
	if c.Lifetime <= 0 {
		c.Lifetime = DefaultLifetime
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
