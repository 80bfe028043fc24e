package flows

import (
	"context"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/session"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Sessions SessionDeps
	Verify   VerifyDeps
}

// TokenIssuer mints the two token kinds for a payload.
type TokenIssuer struct {
	GenerateAccessToken  func(jwt.Payload) (string, error)
	GenerateRefreshToken func(jwt.Payload) (string, error)
}

func (t TokenIssuer) issuePair(payload jwt.Payload) (string, string, error) {
	access, err := t.GenerateAccessToken(payload)
	if err != nil {
		return "", "", err
	}
	refresh, err := t.GenerateRefreshToken(payload)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// MetadataFunc extracts per-request session metadata (user agent, ip).
type MetadataFunc func(context.Context) session.Metadata

func (f MetadataFunc) from(ctx context.Context) session.Metadata {
	if f == nil {
		return session.Metadata{}
	}
	return f(ctx)
}
