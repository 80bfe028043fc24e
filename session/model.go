package session

import "time"

// Clock returns the current wall-clock time. Expiry math uses it exclusively.
type Clock func() time.Time

// Metadata is optional client information recorded with a session.
type Metadata struct {
	UserAgent string `json:"userAgent,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// Session is one logged-in device: a refresh token plus its lifetime.
type Session struct {
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	UserAgent string
	IPAddress string
}

func (s Session) live(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
