package tokenauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	internalmetrics "github.com/MrEthical07/tokenauth/internal/metrics"
	"github.com/rs/zerolog"
)

// UserRecord is a stored user as returned by a [UserLookup]. The Engine never
// modifies it.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}

// PublicUser is the part of a user that may be shown to the client.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         PublicUser
}

// RefreshResult is returned by [Engine.Refresh]. The presented refresh token
// is no longer valid once this is returned.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// UserLookup resolves a user by email. A missing user is (UserRecord{}, false, nil);
// a non-nil error means the lookup itself failed.
//
// Implementations: users.MemoryDirectory, users.PostgresDirectory.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, bool, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
// A mismatch is (false, nil).
//
// Implementations: password.Argon2, password.Bcrypt, password.Auto.
type PasswordVerifier interface {
	Compare(ctx context.Context, plaintext, hash string) (bool, error)
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

type (
	// AuditEvent is one audit record.
	AuditEvent = internalaudit.Event
	// AuditSink receives audit events from the dispatcher goroutine.
	AuditSink = internalaudit.Sink
	NoOpSink  = internalaudit.NoOpSink
	// ChannelSink buffers events in a channel, mainly for tests.
	ChannelSink = internalaudit.ChannelSink
	// JSONWriterSink writes one JSON object per line.
	JSONWriterSink = internalaudit.JSONWriterSink
	// LoggerSink writes events through a zerolog.Logger.
	LoggerSink = internalaudit.LoggerSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(logger)
}

type (
	// MetricID names one counter or histogram.
	MetricID = internalmetrics.MetricID
	// MetricsSnapshot is a point-in-time copy of all metrics.
	MetricsSnapshot = internalmetrics.Snapshot
)
