package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureEmptyCredentials
	LoginFailureUnknownUser
	LoginFailurePasswordMismatch
	LoginFailureLookup
	LoginFailureVerify
	LoginFailureIssue
	LoginFailureStore
)

// Reason is a short audit label for the failure kind.
func (k LoginFailureKind) Reason() string {
	switch k {
	case LoginFailureEmptyCredentials:
		return "empty_credentials"
	case LoginFailureUnknownUser:
		return "user_not_found"
	case LoginFailurePasswordMismatch:
		return "password_mismatch"
	case LoginFailureLookup:
		return "user_lookup"
	case LoginFailureVerify:
		return "password_verify"
	case LoginFailureIssue:
		return "token_issue"
	case LoginFailureStore:
		return "session_store"
	default:
		return ""
	}
}

// Expected reports whether the failure is an ordinary bad-credentials case.
func (k LoginFailureKind) Expected() bool {
	return k == LoginFailureEmptyCredentials ||
		k == LoginFailureUnknownUser ||
		k == LoginFailurePasswordMismatch
}

// LoginUser is a flow-local user model.
type LoginUser struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	User         LoginUser
	AccessToken  string
	RefreshToken string
}

type LoginSessionStore interface {
	Store(ctx context.Context, userID, token string, meta session.Metadata) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	FindUser        func(ctx context.Context, email string) (LoginUser, bool, error)
	ComparePassword func(ctx context.Context, plaintext, hash string) (bool, error)
	Tokens          TokenIssuer
	Metadata        MetadataFunc
	SessionStore    LoginSessionStore
}

// RunLogin authenticates email/password and records a new refresh session.
// Unknown email and wrong password are distinct kinds here but map to the
// same error at the root.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{Failure: LoginFailureEmptyCredentials}
	}

	user, found, err := deps.FindUser(ctx, email)
	if err != nil {
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}
	if !found {
		return LoginResult{Failure: LoginFailureUnknownUser}
	}

	ok, err := deps.ComparePassword(ctx, password, user.PasswordHash)
	if err != nil {
		return LoginResult{Failure: LoginFailureVerify, Err: err, User: user}
	}
	if !ok {
		return LoginResult{Failure: LoginFailurePasswordMismatch, User: user}
	}

	payload := jwt.Payload{UserID: user.ID, Email: user.Email, Role: user.Role}
	access, refresh, err := deps.Tokens.issuePair(payload)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, User: user}
	}

	if err := deps.SessionStore.Store(ctx, user.ID, refresh, deps.Metadata.from(ctx)); err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err, User: user}
	}

	return LoginResult{
		Failure:      LoginFailureNone,
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
