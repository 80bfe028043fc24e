package password

import (
	"context"
	"fmt"
	"strings"
)

// Hasher produces and checks password hashes.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Compare(ctx context.Context, plaintext, encodedHash string) (bool, error)
}

// Auto verifies argon2id and bcrypt hashes alike and produces new hashes with
// a single default algorithm.
type Auto struct {
	argon2 *Argon2
	bcrypt *Bcrypt
	hashFn func(string) (string, error)
}

// Algorithm names accepted by [NewAuto].
const (
	AlgorithmArgon2 = "argon2id"
	AlgorithmBcrypt = "bcrypt"
)

// NewAuto builds an [Auto]. algorithm selects what [Auto.Hash] produces.
func NewAuto(algorithm string, argonCfg Argon2Config, bcryptCost int) (*Auto, error) {
	a, err := NewArgon2(argonCfg)
	if err != nil {
		return nil, err
	}
	out := &Auto{argon2: a, bcrypt: NewBcrypt(bcryptCost)}

	switch algorithm {
	case AlgorithmArgon2, "":
		out.hashFn = out.argon2.Hash
	case AlgorithmBcrypt:
		out.hashFn = out.bcrypt.Hash
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}
	return out, nil
}

// Hash hashes plaintext with the configured default algorithm.
func (a *Auto) Hash(plaintext string) (string, error) {
	return a.hashFn(plaintext)
}

// Compare dispatches on the stored hash's prefix.
func (a *Auto) Compare(ctx context.Context, plaintext, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return a.argon2.Compare(ctx, plaintext, encodedHash)
	case isBcryptHash(encodedHash):
		return a.bcrypt.Compare(ctx, plaintext, encodedHash)
	default:
		return false, fmt.Errorf("%w: unknown hash scheme", ErrMalformedHash)
	}
}
