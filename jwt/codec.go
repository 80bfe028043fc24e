package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Config defines the signing material and lifetimes for both token kinds.
//
// Access and refresh tokens are signed with the same algorithm (HS256) but
// with distinct secrets, so a leaked access secret cannot mint refresh tokens.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string

	// Leeway tolerates clock skew on exp and nbf. Zero means tokens are
	// rejected the instant they expire.
	Leeway       time.Duration
	// MaxFutureIAT rejects tokens issued further ahead than this. Zero
	// disables the check.
	MaxFutureIAT time.Duration

	// Now overrides the clock used for iat/exp. Defaults to time.Now.
	Now func() time.Time
}

// Payload is the identity carried by both access and refresh tokens.
type Payload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Claims is the full JWT claim set issued by [Codec].
type Claims struct {
	Payload
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 access and refresh tokens.
//
// Codec is stateless after construction and safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a ready [Codec].
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cfg.AccessSecret = bytes.Clone(cfg.AccessSecret)
	cfg.RefreshSecret = bytes.Clone(cfg.RefreshSecret)

	return &Codec{config: cfg}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.config.AccessTTL
}

// GenerateAccessToken signs a short-lived access token for payload.
func (c *Codec) GenerateAccessToken(payload Payload) (string, error) {
	return c.sign(payload, kindAccess, c.config.AccessSecret, c.config.AccessTTL)
}

// GenerateRefreshToken signs a long-lived refresh token for payload.
func (c *Codec) GenerateRefreshToken(payload Payload) (string, error) {
	return c.sign(payload, kindRefresh, c.config.RefreshSecret, c.config.RefreshTTL)
}

// VerifyAccessToken returns the payload of a valid access token. ok is false
// for any malformed, tampered, expired or foreign token.
func (c *Codec) VerifyAccessToken(token string) (Payload, bool) {
	claims, err := c.parse(token, kindAccess, c.config.AccessSecret)
	if err != nil {
		return Payload{}, false
	}
	return claims.Payload, true
}

// VerifyRefreshToken is the refresh-token counterpart of [Codec.VerifyAccessToken].
func (c *Codec) VerifyRefreshToken(token string) (Payload, bool) {
	claims, err := c.parse(token, kindRefresh, c.config.RefreshSecret)
	if err != nil {
		return Payload{}, false
	}
	return claims.Payload, true
}

// ParseAccess returns the full claim set of an access token along with the
// reason it was rejected, for callers that need more than ok/not-ok.
func (c *Codec) ParseAccess(token string) (*Claims, error) {
	return c.parse(token, kindAccess, c.config.AccessSecret)
}

func (c *Codec) sign(payload Payload, kind string, secret []byte, ttl time.Duration) (string, error) {
	now := c.config.Now()
	claims := Claims{
		Payload: payload,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   payload.UserID,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *Codec) parse(tokenStr, kind string, secret []byte) (*Claims, error) {
	if tokenStr == "" {
		return nil, jwt.ErrTokenMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.config.Now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: unexpected token kind %q", jwt.ErrTokenInvalidClaims, claims.Kind)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", jwt.ErrTokenInvalidClaims)
	}
	if claims.IssuedAt != nil && c.config.MaxFutureIAT > 0 {
		maxAllowed := c.config.Now().Add(c.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, errors.New("token iat too far in the future")
		}
	}

	return claims, nil
}
