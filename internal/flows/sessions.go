package flows

import (
	"context"

	"github.com/MrEthical07/tokenauth/jwt"
)

type SessionCounter interface {
	ActiveCount(ctx context.Context, userID string) (int, error)
}

// SessionDeps captures session introspection dependencies.
type SessionDeps struct {
	SessionStore SessionCounter
}

func RunActiveSessionCount(ctx context.Context, userID string, deps SessionDeps) (int, error) {
	return deps.SessionStore.ActiveCount(ctx, userID)
}

// VerifyDeps captures access token verification dependencies.
type VerifyDeps struct {
	VerifyAccessToken func(string) (jwt.Payload, bool)
}

// RunVerifyAccess is stateless: an access token stays valid until it expires,
// even after its session is revoked.
func RunVerifyAccess(token string, deps VerifyDeps) (jwt.Payload, bool) {
	if token == "" {
		return jwt.Payload{}, false
	}
	return deps.VerifyAccessToken(token)
}
