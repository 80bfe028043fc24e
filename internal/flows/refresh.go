package flows

import (
	"context"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureIssue
	RefreshFailureRevoked
	RefreshFailureRotate
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	AccessToken  string
	RefreshToken string
}

type RefreshSessionStore interface {
	Rotate(ctx context.Context, userID, oldToken, newToken string, meta session.Metadata) (bool, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	VerifyRefreshToken func(string) (jwt.Payload, bool)
	Tokens             TokenIssuer
	Metadata           MetadataFunc
	SessionStore       RefreshSessionStore
}

// RunRefresh exchanges a live refresh token for a new pair. The new pair is
// minted before the store is touched; the swap itself is a single Rotate so
// two concurrent refreshes of one token cannot both succeed.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	payload, ok := deps.VerifyRefreshToken(refreshToken)
	if !ok {
		return RefreshResult{Failure: RefreshFailureDecode}
	}

	access, refresh, err := deps.Tokens.issuePair(payload)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: payload.UserID}
	}

	rotated, err := deps.SessionStore.Rotate(ctx, payload.UserID, refreshToken, refresh, deps.Metadata.from(ctx))
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRotate, Err: err, UserID: payload.UserID}
	}
	if !rotated {
		return RefreshResult{Failure: RefreshFailureRevoked, UserID: payload.UserID}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		UserID:       payload.UserID,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
