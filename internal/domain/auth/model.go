package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// TokenPair is what a successful login or refresh hands to the client.
// The access token is a stateless JWT; the refresh token is an opaque
// value whose hash is held server-side until it is rotated or revoked.
type TokenPair struct {
	Access           string    `json:"access"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	Refresh          string    `json:"refresh"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RefreshToken is the stored record of one link in a session chain.
// Rotation marks the row used and inserts its successor under the same
// ChainID; presenting a used token again burns the whole chain.
type RefreshToken struct {
	ID        int64
	ChainID   string
	UserID    int64
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
	Revoked   bool
}

type Repository interface {
	Create(ctx context.Context, t *RefreshToken) error
	// Rotate atomically consumes the token identified by tokenHash and
	// persists successor in the same chain. It returns the consumed row.
	// A token that was already consumed causes the chain to be revoked
	// and ErrTokenReused to be returned.
	Rotate(ctx context.Context, tokenHash string, successor *RefreshToken) (*RefreshToken, error)
	// RevokeChain blacklists every token in the chain the given hash
	// belongs to. Unknown hashes are a no-op.
	RevokeChain(ctx context.Context, tokenHash string) error
}

// HashToken derives the at-rest form of a refresh token. Only the hash
// ever touches storage; the raw value stays with the client.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
