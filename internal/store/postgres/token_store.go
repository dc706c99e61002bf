package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewire/ictbot/internal/domain"
)

// tokenRowID is the fixed key of the single credential row.
const tokenRowID = "current"

// TokenStore implements domain.TokenStore using PostgreSQL. It holds a single
// row; validity is a time check on read, never an explicit deletion.
type TokenStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewTokenStore creates a new TokenStore backed by the given connection pool.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool, now: time.Now}
}

// Save replaces the stored credential.
func (s *TokenStore) Save(ctx context.Context, cred domain.Credential) error {
	const query = `
		INSERT INTO broker_tokens (id, token, issued_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			token      = EXCLUDED.token,
			issued_at  = EXCLUDED.issued_at,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, tokenRowID, cred.Token, cred.IssuedAt)
	if err != nil {
		return fmt.Errorf("postgres: save token: %w", err)
	}
	return nil
}

// Get returns the stored credential, or domain.ErrNoCredential when the row
// is missing or has aged past its validity window.
func (s *TokenStore) Get(ctx context.Context) (domain.Credential, error) {
	const query = `SELECT token, issued_at FROM broker_tokens WHERE id = $1`

	var cred domain.Credential
	err := s.pool.QueryRow(ctx, query, tokenRowID).Scan(&cred.Token, &cred.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credential{}, domain.ErrNoCredential
		}
		return domain.Credential{}, fmt.Errorf("postgres: get token: %w", err)
	}

	if !cred.ValidAt(s.now()) {
		return domain.Credential{}, domain.ErrNoCredential
	}
	return cred, nil
}

// Compile-time interface check.
var _ domain.TokenStore = (*TokenStore)(nil)
