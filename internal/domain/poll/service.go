package poll

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrPollNotFound = errors.New("poll not found")
	ErrNotOwner     = errors.New("poll belongs to another user")
	ErrPollHasVotes = errors.New("poll has recorded votes")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Poll, choiceTexts []string) (int64, error) {
	if strings.TrimSpace(p.Question) == "" {
		return 0, errors.New("question required")
	}

	seen := make(map[string]bool, len(choiceTexts))
	choices := make([]Choice, 0, len(choiceTexts))
	for _, text := range choiceTexts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if seen[text] {
			return 0, errors.New("choices must be unique")
		}
		seen[text] = true
		choices = append(choices, Choice{Text: text})
	}
	if len(choices) < 2 {
		return 0, errors.New("poll must have at least 2 choices")
	}

	p.IsActive = true
	return s.repo.Create(ctx, p, choices)
}

func (s *Service) Get(ctx context.Context, id int64, viewerID *int64) (*Detail, error) {
	return s.repo.GetByID(ctx, id, viewerID)
}

// List returns one page of the catalog. Page numbers start at 1; the
// ordering is stable across pages so paginating never skips or repeats
// a poll.
func (s *Service) List(ctx context.Context, page, pageSize int, search string, viewerID *int64) ([]Summary, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return s.repo.List(ctx, ListFilter{
		Search:   strings.TrimSpace(search),
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
		ViewerID: viewerID,
	})
}

// Delete removes a poll on behalf of its owner. A poll with at least one
// vote is immutable: the conditional delete in storage decides, so a
// vote landing concurrently still wins.
func (s *Service) Delete(ctx context.Context, id, requesterID int64) error {
	d, err := s.repo.GetByID(ctx, id, nil)
	if err != nil {
		return err
	}
	if d.CreatorID != requesterID {
		return ErrNotOwner
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		if _, err := s.repo.GetByID(ctx, id, nil); err != nil {
			return err
		}
		return ErrPollHasVotes
	}
	return nil
}
