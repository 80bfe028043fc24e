package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresDirectory reads users from the users table created by [Migrate].
// The pool is owned by the caller.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory wraps pool.
func NewPostgresDirectory(pool *pgxpool.Pool) (*PostgresDirectory, error) {
	if pool == nil {
		return nil, errors.New("users: nil pgx pool")
	}
	return &PostgresDirectory{pool: pool}, nil
}

// OpenPool parses dsn, opens a pool and pings it within timeout.
func OpenPool(ctx context.Context, dsn string, maxConns int32, timeout time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("users: parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("users: open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("users: ping database: %w", err)
	}
	return pool, nil
}

// FindByEmail implements [tokenauth.UserLookup].
func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (tokenauth.UserRecord, bool, error) {
	var rec tokenauth.UserRecord
	err := d.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, role FROM users WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &rec.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokenauth.UserRecord{}, false, nil
		}
		return tokenauth.UserRecord{}, false, fmt.Errorf("users: find by email: %w", err)
	}
	return rec, true, nil
}

// Create inserts rec. A taken email returns [ErrDuplicateEmail].
func (d *PostgresDirectory) Create(ctx context.Context, rec tokenauth.UserRecord) error {
	key := normalizeEmail(rec.Email)
	if key == "" || rec.ID == "" || rec.PasswordHash == "" {
		return errors.New("users: id, email and password hash are required")
	}
	_, err := d.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, role) VALUES ($1, $2, $3, $4)`,
		rec.ID, key, rec.PasswordHash, rec.Role,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, key)
	}
	if err != nil {
		return fmt.Errorf("users: create: %w", err)
	}
	return nil
}

// Seed inserts each seed that is not already present, in one transaction.
// Existing rows are left untouched.
func (d *PostgresDirectory) Seed(ctx context.Context, h Hasher, seeds ...Seed) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("users: begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range seeds {
		hash, err := h.Hash(s.Password)
		if err != nil {
			return fmt.Errorf("users: hash %s: %w", s.Email, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, role) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (email) DO NOTHING`,
			s.ID, normalizeEmail(s.Email), hash, s.Role,
		); err != nil {
			return fmt.Errorf("users: seed %s: %w", s.Email, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("users: commit seed: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation
}
