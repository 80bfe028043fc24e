package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MrEthical07/tokenauth"
)

// ErrDuplicateEmail is returned when a user with the same email exists.
var ErrDuplicateEmail = errors.New("users: email already registered")

// Hasher turns a plaintext password into a stored hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// Seed is a user with a plaintext password, hashed on insert.
type Seed struct {
	ID       string
	Email    string
	Password string
	Role     string
}

// DemoSeeds returns the two demo accounts served by cmd/authd in mock mode.
func DemoSeeds() []Seed {
	return []Seed{
		{ID: "user-1", Email: "demo@example.com", Password: "password123", Role: "user"},
		{ID: "user-2", Email: "admin@example.com", Password: "admin123", Role: "admin"},
	}
}

// MemoryDirectory is a process-local [tokenauth.UserLookup].
type MemoryDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]tokenauth.UserRecord
}

// NewMemoryDirectory returns an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{byEmail: make(map[string]tokenauth.UserRecord)}
}

// Add inserts rec. The password hash is stored as given.
func (d *MemoryDirectory) Add(rec tokenauth.UserRecord) error {
	key := normalizeEmail(rec.Email)
	if key == "" || rec.ID == "" {
		return errors.New("users: id and email are required")
	}
	if rec.PasswordHash == "" {
		return fmt.Errorf("users: %s has no password hash", key)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byEmail[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, key)
	}
	rec.Email = key
	d.byEmail[key] = rec
	return nil
}

// Seed hashes and adds every seed. It stops at the first failure.
func (d *MemoryDirectory) Seed(h Hasher, seeds ...Seed) error {
	for _, s := range seeds {
		hash, err := h.Hash(s.Password)
		if err != nil {
			return fmt.Errorf("users: hash %s: %w", s.Email, err)
		}
		if err := d.Add(tokenauth.UserRecord{ID: s.ID, Email: s.Email, PasswordHash: hash, Role: s.Role}); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of users.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byEmail)
}

// FindByEmail implements [tokenauth.UserLookup].
func (d *MemoryDirectory) FindByEmail(ctx context.Context, email string) (tokenauth.UserRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return tokenauth.UserRecord{}, false, err
	}
	d.mu.RLock()
	rec, ok := d.byEmail[normalizeEmail(email)]
	d.mu.RUnlock()
	return rec, ok, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
