package flows

import (
	"context"

	"github.com/MrEthical07/tokenauth/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.SessionStore != nil &&
		s.deps.Refresh.SessionStore != nil &&
		s.deps.Verify.VerifyAccessToken != nil
}

func (s Service) Login(ctx context.Context, email, password string) LoginResult {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, refreshToken string) LogoutResult {
	return RunLogout(ctx, refreshToken, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	return RunLogoutAll(ctx, userID, s.deps.Logout)
}

func (s Service) ActiveSessionCount(ctx context.Context, userID string) (int, error) {
	return RunActiveSessionCount(ctx, userID, s.deps.Sessions)
}

func (s Service) VerifyAccess(token string) (jwt.Payload, bool) {
	return RunVerifyAccess(token, s.deps.Verify)
}
