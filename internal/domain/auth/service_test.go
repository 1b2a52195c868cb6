package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	jwtpkg "voting-app/internal/platform/jwt"
)

type memoryTokenRepo struct {
	mu     sync.Mutex
	byHash map[string]*RefreshToken
	nextID int64
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{byHash: make(map[string]*RefreshToken), nextID: 1}
}

func (r *memoryTokenRepo) Create(ctx context.Context, t *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now()
	copyTok := *t
	r.byHash[t.TokenHash] = &copyTok
	return nil
}

func (r *memoryTokenRepo) Rotate(ctx context.Context, tokenHash string, successor *RefreshToken) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byHash[tokenHash]
	if !ok || t.Revoked {
		return nil, ErrTokenInvalid
	}
	if t.UsedAt != nil {
		for _, other := range r.byHash {
			if other.ChainID == t.ChainID {
				other.Revoked = true
			}
		}
		return nil, ErrTokenReused
	}
	if time.Now().After(t.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	now := time.Now()
	t.UsedAt = &now

	successor.ID = r.nextID
	r.nextID++
	successor.ChainID = t.ChainID
	successor.UserID = t.UserID
	successor.CreatedAt = now
	copySucc := *successor
	r.byHash[successor.TokenHash] = &copySucc

	copyTok := *t
	return &copyTok, nil
}

func (r *memoryTokenRepo) RevokeChain(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byHash[tokenHash]
	if !ok {
		return nil
	}
	for _, other := range r.byHash {
		if other.ChainID == t.ChainID {
			other.Revoked = true
		}
	}
	return nil
}

func newTestService(accessTTL, refreshTTL time.Duration) (*Service, *memoryTokenRepo) {
	repo := newMemoryTokenRepo()
	jwtMgr := jwtpkg.NewManager("secret", "test-issuer")
	return NewService(repo, jwtMgr, accessTTL, refreshTTL), repo
}

func TestIssueAndValidateAccess(t *testing.T) {
	svc, _ := newTestService(time.Hour, time.Hour)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	userID, err := svc.ValidateAccess(pair.Access)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}

	if _, err := svc.ValidateAccess("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestValidateExpiredAccess(t *testing.T) {
	svc, _ := newTestService(-time.Minute, time.Hour)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.ValidateAccess(pair.Access); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, _ := newTestService(time.Hour, time.Hour)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, err := svc.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.Refresh == pair.Refresh {
		t.Fatalf("refresh token was not rotated")
	}
	if userID, err := svc.ValidateAccess(rotated.Access); err != nil || userID != 7 {
		t.Fatalf("rotated access invalid: user=%d err=%v", userID, err)
	}
}

func TestRefreshReuseBurnsChain(t *testing.T) {
	svc, _ := newTestService(time.Hour, time.Hour)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rotated, err := svc.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Presenting the consumed token again is the compromise signal.
	if _, err := svc.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected reuse error, got %v", err)
	}

	// The successor issued by the legitimate rotation dies with the chain.
	if _, err := svc.Refresh(ctx, rotated.Refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked successor to be invalid, got %v", err)
	}
}

func TestRefreshExpired(t *testing.T) {
	svc, _ := newTestService(time.Hour, -time.Minute)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestRefreshUnknownToken(t *testing.T) {
	svc, _ := newTestService(time.Hour, time.Hour)
	if _, err := svc.Refresh(context.Background(), "never-issued"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _ := newTestService(time.Hour, time.Hour)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := svc.Logout(ctx, pair.Refresh); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(ctx, pair.Refresh); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Fatalf("logout unknown token: %v", err)
	}

	if _, err := svc.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected refresh after logout to fail, got %v", err)
	}
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	svc, _ := newTestService(time.Hour, time.Hour)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const attempts = 10
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Refresh(ctx, pair.Refresh)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", ok)
	}
}
