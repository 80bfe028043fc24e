package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/jwt"
)

// Error codes written by [RequireAuth].
const (
	CodeNoToken      = "NO_TOKEN"
	CodeInvalidToken = tokenauth.CodeInvalidToken
)

// AccessVerifier is satisfied by *tokenauth.Engine.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, accessToken string) (*jwt.Payload, error)
}

type payloadContextKey struct{}

// PayloadFromContext returns the payload stored by RequireAuth or OptionalAuth.
func PayloadFromContext(ctx context.Context) (*jwt.Payload, bool) {
	p, ok := ctx.Value(payloadContextKey{}).(*jwt.Payload)
	return p, ok && p != nil
}

// WithPayload stores p in ctx the same way the guards do.
func WithPayload(ctx context.Context, p *jwt.Payload) context.Context {
	return context.WithValue(ctx, payloadContextKey{}, p)
}

func RequireAuth(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || verifier == nil {
				writeError(w, "Authentication required", CodeNoToken)
				return
			}

			payload, err := verifier.VerifyAccess(r.Context(), token)
			if err != nil {
				writeError(w, tokenauth.ErrInvalidAccessToken.Message, CodeInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), payload)))
		})
	}
}

func OptionalAuth(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if ok && verifier != nil {
				if payload, err := verifier.VerifyAccess(r.Context(), token); err == nil {
					r = r.WithContext(WithPayload(r.Context(), payload))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken accepts exactly "Bearer <token>".
func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", false
	}
	return token, true
}

func writeError(w http.ResponseWriter, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
