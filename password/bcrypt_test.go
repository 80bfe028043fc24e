package password

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndCompare(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)

	hash, err := b.Hash("password123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !isBcryptHash(hash) {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}

	if ok, err := b.Compare(context.Background(), "password123", hash); err != nil || !ok {
		t.Fatalf("expected match: ok=%v err=%v", ok, err)
	}
	if ok, err := b.Compare(context.Background(), "password124", hash); err != nil || ok {
		t.Fatalf("expected mismatch without error: ok=%v err=%v", ok, err)
	}
}

func TestBcryptCompareMalformedHash(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)
	if _, err := b.Compare(context.Background(), "x", "$2a$broken"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
}

func TestNewBcryptClampsCost(t *testing.T) {
	if got := NewBcrypt(0).cost; got != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
	if got := NewBcrypt(1).cost; got != bcrypt.MinCost {
		t.Fatalf("expected min cost, got %d", got)
	}
	if got := NewBcrypt(99).cost; got != bcrypt.MaxCost {
		t.Fatalf("expected max cost, got %d", got)
	}
}

func TestAutoDispatchesOnHashPrefix(t *testing.T) {
	auto, err := NewAuto(AlgorithmArgon2, testArgon2Config(), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewAuto error: %v", err)
	}

	argonHash, err := auto.Hash("admin123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(argonHash, argon2Prefix) {
		t.Fatalf("expected argon2id default, got %s", argonHash)
	}

	bcryptHash, err := NewBcrypt(bcrypt.MinCost).Hash("admin123")
	if err != nil {
		t.Fatalf("bcrypt Hash error: %v", err)
	}

	for _, h := range []string{argonHash, bcryptHash} {
		if ok, err := auto.Compare(context.Background(), "admin123", h); err != nil || !ok {
			t.Fatalf("expected match for %s: ok=%v err=%v", h[:8], ok, err)
		}
		if ok, err := auto.Compare(context.Background(), "admin124", h); err != nil || ok {
			t.Fatalf("expected mismatch for %s: ok=%v err=%v", h[:8], ok, err)
		}
	}

	if _, err := auto.Compare(context.Background(), "admin123", "plaintext"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash for unknown scheme, got %v", err)
	}
}

func TestNewAutoSelectsAlgorithm(t *testing.T) {
	auto, err := NewAuto(AlgorithmBcrypt, testArgon2Config(), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewAuto error: %v", err)
	}
	hash, err := auto.Hash("secret-value")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !isBcryptHash(hash) {
		t.Fatalf("expected bcrypt hash, got %s", hash)
	}

	if _, err := NewAuto("md5", testArgon2Config(), 0); err == nil {
		t.Fatal("expected unsupported algorithm error")
	}
}
