package tokenauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/password"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUserPassword  = "password123"
	testAdminPassword = "admin123"
)

type fakeUsers struct {
	byEmail map[string]UserRecord
	err     error
	calls   int
	mu      sync.Mutex
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (UserRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return UserRecord{}, false, f.err
	}
	rec, ok := f.byEmail[email]
	return rec, ok, nil
}

var (
	testHashesOnce sync.Once
	testUserHash   string
	testAdminHash  string
)

func newFakeUsers(tb testing.TB) *fakeUsers {
	tb.Helper()

	testHashesOnce.Do(func() {
		b := password.NewBcrypt(bcrypt.MinCost)
		testUserHash, _ = b.Hash(testUserPassword)
		testAdminHash, _ = b.Hash(testAdminPassword)
	})
	if testUserHash == "" || testAdminHash == "" {
		tb.Fatal("hashing test passwords failed")
	}

	return &fakeUsers{
		byEmail: map[string]UserRecord{
			"demo@example.com":  {ID: "1", Email: "demo@example.com", PasswordHash: testUserHash, Role: "user"},
			"admin@example.com": {ID: "2", Email: "admin@example.com", PasswordHash: testAdminHash, Role: "admin"},
		},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret-0123456789abcdef")
	cfg.Password.Algorithm = password.AlgorithmBcrypt
	cfg.Password.BcryptCost = bcrypt.MinCost
	return cfg
}

type testEngine struct {
	*Engine
	users *fakeUsers
	clock *fakeClock
}

func newTestEngine(tb testing.TB, configure func(*Builder)) *testEngine {
	tb.Helper()

	users := newFakeUsers(tb)
	clock := newFakeClock()
	b := New().
		WithConfig(testConfig()).
		WithUserLookup(users).
		WithClock(clock.Now)
	if configure != nil {
		configure(b)
	}

	engine, err := b.Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}
	tb.Cleanup(engine.Close)

	return &testEngine{Engine: engine, users: users, clock: clock}
}

func (e *testEngine) mustLogin(tb testing.TB, email, pw string) *LoginResult {
	tb.Helper()
	res, err := e.Login(context.Background(), email, pw)
	if err != nil {
		tb.Fatalf("login %s failed: %v", email, err)
	}
	return res
}

func (e *testEngine) mustCount(tb testing.TB, userID string) int {
	tb.Helper()
	n, err := e.GetSessionCount(context.Background(), userID)
	if err != nil {
		tb.Fatalf("GetSessionCount failed: %v", err)
	}
	return n
}

var errBackendDown = errors.New("backend down")
