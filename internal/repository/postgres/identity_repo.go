package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loangraph/microlend/internal/chain"
)

// IdentityRepository is the KYC registry maintained by onboarding.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) IsVerified(ctx context.Context, who chain.Principal) (bool, error) {
	var verified bool
	err := r.pool.QueryRow(ctx, `SELECT verified FROM identity_registry WHERE principal = $1`, string(who)).Scan(&verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return verified, nil
}

func (r *IdentityRepository) SetVerified(ctx context.Context, who chain.Principal, verified bool) error {
	q := `
INSERT INTO identity_registry (principal, verified, verified_at)
VALUES ($1, $2::boolean, CASE WHEN $2::boolean THEN NOW() END)
ON CONFLICT (principal) DO UPDATE SET
  verified = EXCLUDED.verified,
  verified_at = EXCLUDED.verified_at,
  updated_at = NOW()
`
	_, err := r.pool.Exec(ctx, q, string(who), verified)
	return err
}
