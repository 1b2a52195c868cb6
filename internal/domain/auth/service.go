package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	jwtpkg "voting-app/internal/platform/jwt"
)

var (
	ErrTokenExpired = errors.New("refresh token expired")
	ErrTokenInvalid = errors.New("refresh token invalid")
	ErrTokenReused  = errors.New("refresh token reused")
)

type Service struct {
	repo       Repository
	jwtMgr     *jwtpkg.Manager
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(repo Repository, jwtMgr *jwtpkg.Manager, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		jwtMgr:     jwtMgr,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue starts a new session chain for the user and returns its first
// token pair.
func (s *Service) Issue(ctx context.Context, userID int64) (*TokenPair, error) {
	raw := uuid.NewString()
	record := &RefreshToken{
		ChainID:   uuid.NewString(),
		UserID:    userID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	return s.pair(userID, raw, record.ExpiresAt)
}

// Refresh rotates the presented refresh token: the old token is consumed
// and a new pair in the same chain is returned. Reuse of an already
// consumed token revokes the chain and fails with ErrTokenReused.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrTokenInvalid
	}

	raw := uuid.NewString()
	successor := &RefreshToken{
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}

	consumed, err := s.repo.Rotate(ctx, HashToken(refreshToken), successor)
	if err != nil {
		return nil, err
	}

	return s.pair(consumed.UserID, raw, successor.ExpiresAt)
}

// Logout blacklists the whole session chain. Logging out twice, or with
// a token the server never saw, is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.RevokeChain(ctx, HashToken(refreshToken))
}

// ValidateAccess verifies an access token's signature and expiry without
// touching storage and returns the user it was minted for.
func (s *Service) ValidateAccess(accessToken string) (int64, error) {
	claims, err := s.jwtMgr.Parse(accessToken)
	if err != nil {
		if errors.Is(err, jwtpkg.ErrExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	return claims.UserID, nil
}

func (s *Service) pair(userID int64, refreshRaw string, refreshExp time.Time) (*TokenPair, error) {
	access, accessExp, err := s.jwtMgr.Generate(userID, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		Access:           access,
		AccessExpiresAt:  accessExp,
		Refresh:          refreshRaw,
		RefreshExpiresAt: refreshExp,
	}, nil
}
