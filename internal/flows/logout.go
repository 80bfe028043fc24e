package flows

import (
	"context"

	"github.com/MrEthical07/tokenauth/jwt"
)

type LogoutSessionStore interface {
	Revoke(ctx context.Context, userID, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	VerifyRefreshToken func(string) (jwt.Payload, bool)
	SessionStore       LogoutSessionStore
}

// LogoutResult reports what a best-effort logout actually did.
type LogoutResult struct {
	UserID  string
	Decoded bool
	Revoked bool
	Err     error
}

// RunLogout revokes the session behind refreshToken. A token that does not
// verify is ignored rather than reported.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	if refreshToken == "" {
		return LogoutResult{}
	}
	payload, ok := deps.VerifyRefreshToken(refreshToken)
	if !ok {
		return LogoutResult{}
	}

	revoked, err := deps.SessionStore.Revoke(ctx, payload.UserID, refreshToken)
	return LogoutResult{
		UserID:  payload.UserID,
		Decoded: true,
		Revoked: revoked,
		Err:     err,
	}
}

func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) (int, error) {
	return deps.SessionStore.RevokeAllForUser(ctx, userID)
}
