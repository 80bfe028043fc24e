package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLoginDemoUser(t *testing.T) {
	e := newTestEngine(t, nil)

	res, err := e.Login(context.Background(), "demo@example.com", testUserPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if res.User != (PublicUser{ID: "1", Email: "demo@example.com", Role: "user"}) {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if got := e.mustCount(t, "1"); got != 1 {
		t.Fatalf("expected one session, got %d", got)
	}
}

func TestLoginRejectsWithoutEnumeration(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, wrongPassword := e.Login(ctx, "demo@example.com", "wrong-password")
	_, unknownEmail := e.Login(ctx, "nobody@example.com", testUserPassword)

	for _, err := range []error{wrongPassword, unknownEmail} {
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if !IsAuthFailure(err) {
			t.Fatal("expected an auth failure")
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
	if got := e.mustCount(t, "1"); got != 0 {
		t.Fatalf("failed login must not create a session, got %d", got)
	}
}

func TestLoginEmptyCredentialsSkipsLookup(t *testing.T) {
	e := newTestEngine(t, nil)

	for _, c := range [][2]string{{"", "x"}, {"demo@example.com", ""}, {"   ", "x"}} {
		if _, err := e.Login(context.Background(), c[0], c[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for %q, got %v", c, err)
		}
	}
	if e.users.calls != 0 {
		t.Fatalf("expected no user lookups, got %d", e.users.calls)
	}
}

func TestLoginLookupFailureIsInternal(t *testing.T) {
	e := newTestEngine(t, nil)
	e.users.err = errBackendDown

	_, err := e.Login(context.Background(), "demo@example.com", testUserPassword)
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	if IsAuthFailure(err) {
		t.Fatal("backend failure must not look like an auth failure")
	}
}

func TestLoginMalformedHashIsInternal(t *testing.T) {
	e := newTestEngine(t, nil)
	e.users.byEmail["broken@example.com"] = UserRecord{ID: "9", Email: "broken@example.com", PasswordHash: "plaintext", Role: "user"}

	_, err := e.Login(context.Background(), "broken@example.com", "plaintext")
	if err == nil || IsAuthFailure(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestLoginEvictsOldestBeyondCap(t *testing.T) {
	e := newTestEngine(t, nil)

	var logins []*LoginResult
	for i := 0; i < 7; i++ {
		logins = append(logins, e.mustLogin(t, "demo@example.com", testUserPassword))
	}
	if got := e.mustCount(t, "1"); got != 5 {
		t.Fatalf("expected count capped at 5, got %d", got)
	}

	for i, l := range logins {
		_, err := e.Refresh(context.Background(), l.RefreshToken)
		switch {
		case i < 2 && !errors.Is(err, ErrRevokedRefreshToken):
			t.Fatalf("login %d should have been evicted, got %v", i, err)
		case i >= 2 && err != nil:
			t.Fatalf("login %d should still be live: %v", i, err)
		}
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	login := e.mustLogin(t, "demo@example.com", testUserPassword)
	rotated, err := e.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.RefreshToken == login.RefreshToken || rotated.AccessToken == login.AccessToken {
		t.Fatal("expected fresh tokens")
	}

	if _, err := e.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRevokedRefreshToken) {
		t.Fatalf("expected ErrRevokedRefreshToken on reuse, got %v", err)
	}
	if got := e.mustCount(t, "1"); got != 1 {
		t.Fatalf("rotation must keep one session, got %d", got)
	}

	payload, err := e.VerifyAccess(ctx, rotated.AccessToken)
	if err != nil {
		t.Fatalf("rotated access token rejected: %v", err)
	}
	if payload.UserID != "1" || payload.Role != "user" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if _, err := e.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("second rotation failed: %v", err)
	}
}

func TestRefreshRejectsInvalidTokens(t *testing.T) {
	e := newTestEngine(t, nil)
	login := e.mustLogin(t, "demo@example.com", testUserPassword)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"access token": login.AccessToken,
		"tampered":     login.RefreshToken[:len(login.RefreshToken)-2] + "xx",
	} {
		if _, err := e.Refresh(context.Background(), token); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("%s: expected ErrInvalidRefreshToken, got %v", name, err)
		}
	}
}

func TestRefreshAfterLogoutIsRevoked(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	login := e.mustLogin(t, "demo@example.com", testUserPassword)
	if err := e.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := e.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRevokedRefreshToken) {
		t.Fatalf("expected ErrRevokedRefreshToken, got %v", err)
	}
}

func TestRefreshAfterTokenExpiryIsInvalid(t *testing.T) {
	e := newTestEngine(t, nil)

	login := e.mustLogin(t, "demo@example.com", testUserPassword)
	e.clock.Advance(session.DefaultLifetime + time.Hour)

	if _, err := e.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestTokensRejectedOneSecondPastExpiry(t *testing.T) {
	e := newTestEngine(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Session.Lifetime = 30 * 24 * time.Hour
		b.WithConfig(cfg)
	})
	ctx := context.Background()

	if got := DefaultConfig().JWT.Leeway; got != 0 {
		t.Fatalf("default leeway = %v, want 0", got)
	}

	login := e.mustLogin(t, "demo@example.com", testUserPassword)
	e.clock.Advance(e.AccessTTL() + time.Second)
	if _, err := e.VerifyAccess(ctx, login.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}

	e.clock.Advance(session.DefaultLifetime - e.AccessTTL())
	if _, err := e.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshAfterSessionExpiryIsRevoked(t *testing.T) {
	e := newTestEngine(t, func(b *Builder) {
		cfg := testConfig()
		cfg.JWT.RefreshTTL = 30 * 24 * time.Hour
		cfg.Session.Lifetime = time.Hour
		b.WithConfig(cfg)
	})

	login := e.mustLogin(t, "demo@example.com", testUserPassword)
	e.clock.Advance(time.Hour)

	if _, err := e.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrRevokedRefreshToken) {
		t.Fatalf("expected ErrRevokedRefreshToken, got %v", err)
	}
	if got := e.mustCount(t, "1"); got != 0 {
		t.Fatalf("expired session must not count, got %d", got)
	}
}

func TestLogoutIsIdempotentAndSilent(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	login := e.mustLogin(t, "demo@example.com", testUserPassword)
	for i := 0; i < 2; i++ {
		if err := e.Logout(ctx, login.RefreshToken); err != nil {
			t.Fatalf("logout %d failed: %v", i, err)
		}
	}
	for _, token := range []string{"", "garbage", login.AccessToken} {
		if err := e.Logout(ctx, token); err != nil {
			t.Fatalf("logout(%q) must be silent, got %v", token, err)
		}
	}
	if got := e.mustCount(t, "1"); got != 0 {
		t.Fatalf("expected no sessions, got %d", got)
	}
}

func TestLogoutAllScopedToUser(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e.mustLogin(t, "demo@example.com", testUserPassword)
	}
	admin := e.mustLogin(t, "admin@example.com", testAdminPassword)
	e.mustLogin(t, "admin@example.com", testAdminPassword)

	n, err := e.LogoutAll(ctx, "1")
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked, got %d", n)
	}
	if got := e.mustCount(t, "1"); got != 0 {
		t.Fatalf("expected user sessions gone, got %d", got)
	}
	if got := e.mustCount(t, "2"); got != 2 {
		t.Fatalf("admin sessions must be untouched, got %d", got)
	}
	if _, err := e.Refresh(ctx, admin.RefreshToken); err != nil {
		t.Fatalf("admin refresh failed: %v", err)
	}

	n, err = e.LogoutAll(ctx, "1")
	if err != nil || n != 0 {
		t.Fatalf("second LogoutAll: n=%d err=%v", n, err)
	}
}

func TestVerifyAccess(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	login := e.mustLogin(t, "admin@example.com", testAdminPassword)

	payload, err := e.VerifyAccess(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if payload.UserID != "2" || payload.Email != "admin@example.com" || payload.Role != "admin" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	for _, token := range []string{"", "garbage", login.RefreshToken} {
		if _, err := e.VerifyAccess(ctx, token); !errors.Is(err, ErrInvalidAccessToken) {
			t.Fatalf("expected ErrInvalidAccessToken for %q, got %v", token, err)
		}
	}

	// Access tokens are stateless and outlive logout until they expire.
	if _, err := e.LogoutAll(ctx, "2"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.VerifyAccess(ctx, login.AccessToken); err != nil {
		t.Fatalf("access token should survive logout: %v", err)
	}

	e.clock.Advance(e.AccessTTL() + time.Minute)
	if _, err := e.VerifyAccess(ctx, login.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

type failingStore struct {
	inner      session.Store
	failRevoke bool
	failStore  bool
	failRotate bool
}

func (s *failingStore) Store(ctx context.Context, userID, token string, meta session.Metadata) error {
	if s.failStore {
		return fmt.Errorf("%w: injected", session.ErrStoreUnavailable)
	}
	return s.inner.Store(ctx, userID, token, meta)
}

func (s *failingStore) Validate(ctx context.Context, userID, token string) (bool, error) {
	return s.inner.Validate(ctx, userID, token)
}

func (s *failingStore) Revoke(ctx context.Context, userID, token string) (bool, error) {
	if s.failRevoke {
		return false, fmt.Errorf("%w: injected", session.ErrStoreUnavailable)
	}
	return s.inner.Revoke(ctx, userID, token)
}

func (s *failingStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	return s.inner.RevokeAllForUser(ctx, userID)
}

func (s *failingStore) ActiveCount(ctx context.Context, userID string) (int, error) {
	return s.inner.ActiveCount(ctx, userID)
}

func (s *failingStore) Rotate(ctx context.Context, userID, oldToken, newToken string, meta session.Metadata) (bool, error) {
	if s.failRotate {
		return false, fmt.Errorf("%w: injected", session.ErrStoreUnavailable)
	}
	return s.inner.Rotate(ctx, userID, oldToken, newToken, meta)
}

func TestStoreFailuresPropagate(t *testing.T) {
	store := &failingStore{inner: session.NewMemoryStore(session.Config{})}
	e := newTestEngine(t, func(b *Builder) {
		b.WithSessionStore(store).WithMetricsEnabled(true)
	})
	ctx := context.Background()

	login := e.mustLogin(t, "demo@example.com", testUserPassword)

	store.failRevoke = true
	err := e.Logout(ctx, login.RefreshToken)
	if !errors.Is(err, session.ErrStoreUnavailable) || IsAuthFailure(err) {
		t.Fatalf("expected store failure from logout, got %v", err)
	}

	store.failStore = true
	_, err = e.Login(ctx, "demo@example.com", testUserPassword)
	if !errors.Is(err, session.ErrStoreUnavailable) || IsAuthFailure(err) {
		t.Fatalf("expected store failure from login, got %v", err)
	}

	if got := e.MetricsSnapshot().Counters[MetricInternalError]; got != 2 {
		t.Fatalf("expected 2 internal errors, got %d", got)
	}
}

func TestEngineWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := newTestEngine(t, func(b *Builder) { b.WithRedis(rdb) })
	ctx := context.Background()

	if _, err := e.Health(ctx); err != nil {
		t.Fatalf("health failed: %v", err)
	}

	login := e.mustLogin(t, "demo@example.com", testUserPassword)
	rotated, err := e.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, err := e.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRevokedRefreshToken) {
		t.Fatalf("expected ErrRevokedRefreshToken, got %v", err)
	}
	if got := e.mustCount(t, "1"); got != 1 {
		t.Fatalf("expected one session, got %d", got)
	}
	if err := e.Logout(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if got := e.mustCount(t, "1"); got != 0 {
		t.Fatalf("expected no sessions, got %d", got)
	}
}

func TestEngineMetricsSnapshot(t *testing.T) {
	e := newTestEngine(t, func(b *Builder) {
		b.WithMetricsEnabled(true).WithLatencyHistograms(true)
	})
	ctx := context.Background()

	login := e.mustLogin(t, "demo@example.com", testUserPassword)
	_, _ = e.Login(ctx, "demo@example.com", "nope")
	rotated, _ := e.Refresh(ctx, login.RefreshToken)
	_, _ = e.Refresh(ctx, login.RefreshToken)
	_, _ = e.Refresh(ctx, "junk")
	_ = e.Logout(ctx, rotated.RefreshToken)
	e.mustLogin(t, "demo@example.com", testUserPassword)
	e.mustLogin(t, "demo@example.com", testUserPassword)
	_, _ = e.LogoutAll(ctx, "1")
	_, _ = e.VerifyAccess(ctx, "junk")

	snap := e.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricLoginSuccess:        3,
		MetricLoginFailure:        1,
		MetricSessionCreated:      3,
		MetricRefreshSuccess:      1,
		MetricRefreshRevoked:      1,
		MetricRefreshInvalid:      1,
		MetricLogout:              1,
		MetricLogoutAll:           1,
		MetricSessionInvalidated:  3,
		MetricAccessVerifyFailure: 1,
		MetricInternalError:       0,
	}
	for id, v := range want {
		if got := snap.Counters[id]; got != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, got)
		}
	}

	var logins uint64
	for _, n := range snap.Histograms[MetricLoginLatency] {
		logins += n
	}
	if logins != 4 {
		t.Fatalf("expected 4 login latency samples, got %d", logins)
	}
}

func TestBuilderValidation(t *testing.T) {
	users := newFakeUsers(t)

	if _, err := New().WithUserLookup(users).Build(); err == nil {
		t.Fatal("expected missing secrets to fail")
	}
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected missing user lookup to fail")
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	_, err := New().
		WithConfig(testConfig()).
		WithUserLookup(users).
		WithRedis(rdb).
		WithSessionStore(session.NewMemoryStore(session.Config{})).
		Build()
	if err == nil {
		t.Fatal("expected store and redis together to fail")
	}

	b := New().WithConfig(testConfig()).WithUserLookup(users)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	ctx := context.Background()

	if _, err := e.Login(ctx, "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Login: %v", err)
	}
	if _, err := e.Refresh(ctx, "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Refresh: %v", err)
	}
	if err := e.Logout(ctx, "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Logout: %v", err)
	}
	e.Close()
	if e.AuditDropped() != 0 || len(e.MetricsSnapshot().Counters) != 0 {
		t.Fatal("nil engine must report zero values")
	}
}

func TestAuthErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrRevokedRefreshToken)
	if !errors.Is(wrapped, ErrRevokedRefreshToken) || !IsAuthFailure(wrapped) {
		t.Fatal("expected wrapped auth error to match")
	}
	if errors.Is(ErrRevokedRefreshToken, ErrInvalidRefreshToken) {
		t.Fatal("distinct codes must not match")
	}
	if !errors.Is(&AuthError{Code: CodeInvalidCredentials}, ErrInvalidCredentials) {
		t.Fatal("expected match on code")
	}

	var authErr *AuthError
	if !errors.As(wrapped, &authErr) || authErr.Code != CodeRevokedRefreshToken || authErr.Message != "Refresh token has been revoked" {
		t.Fatalf("unexpected AuthError: %+v", authErr)
	}
	if IsAuthFailure(errBackendDown) || IsAuthFailure(nil) {
		t.Fatal("plain errors are not auth failures")
	}
}
