package postgres

import (
	"context"
	"database/sql"
	"time"

	"voting-app/internal/domain/auth"
)

type TokenRepo struct {
	db *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Create(ctx context.Context, t *auth.RefreshToken) error {
	query := `
        INSERT INTO refresh_tokens (chain_id, user_id, token_hash, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	return r.db.QueryRowContext(ctx, query, t.ChainID, t.UserID, t.TokenHash, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt)
}

// Rotate consumes the presented token and stores its successor in one
// transaction. The row lock serializes concurrent refreshes of the same
// token, so only the first one rotates; the rest observe used_at set and
// trip reuse detection.
func (r *TokenRepo) Rotate(ctx context.Context, tokenHash string, successor *auth.RefreshToken) (*auth.RefreshToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := &auth.RefreshToken{}
	err = tx.QueryRowContext(ctx, `
        SELECT id, chain_id, user_id, token_hash, created_at, expires_at, used_at, revoked
        FROM refresh_tokens
        WHERE token_hash = $1
        FOR UPDATE
    `, tokenHash).Scan(
		&t.ID, &t.ChainID, &t.UserID, &t.TokenHash,
		&t.CreatedAt, &t.ExpiresAt, &t.UsedAt, &t.Revoked,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrTokenInvalid
		}
		return nil, err
	}

	if t.Revoked {
		return nil, auth.ErrTokenInvalid
	}

	if t.UsedAt != nil {
		// Reuse after rotation: burn the whole chain. The revocation must
		// survive the error return, so it commits here.
		if _, err := tx.ExecContext(ctx,
			`UPDATE refresh_tokens SET revoked = true WHERE chain_id = $1`, t.ChainID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, auth.ErrTokenReused
	}

	if time.Now().After(t.ExpiresAt) {
		return nil, auth.ErrTokenExpired
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET used_at = now() WHERE id = $1`, t.ID); err != nil {
		return nil, err
	}

	successor.ChainID = t.ChainID
	successor.UserID = t.UserID
	err = tx.QueryRowContext(ctx, `
        INSERT INTO refresh_tokens (chain_id, user_id, token_hash, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, successor.ChainID, successor.UserID, successor.TokenHash, successor.ExpiresAt).
		Scan(&successor.ID, &successor.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TokenRepo) RevokeChain(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE refresh_tokens SET revoked = true
        WHERE chain_id = (SELECT chain_id FROM refresh_tokens WHERE token_hash = $1)
    `, tokenHash)
	return err
}
