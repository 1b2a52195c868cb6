package vote

import (
	"context"
	"errors"
	"math"
)

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrPollNotActive   = errors.New("poll is not active")
	ErrChoiceNotInPoll = errors.New("choice does not belong to poll")
	ErrAlreadyVoted    = errors.New("user already voted in this poll")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Cast records the user's vote. Concurrent attempts for the same
// (user, poll) pair produce exactly one receipt; the rest fail with
// ErrAlreadyVoted.
func (s *Service) Cast(ctx context.Context, userID, pollID, choiceID int64) (*Receipt, error) {
	v := &Vote{
		UserID:   userID,
		PollID:   pollID,
		ChoiceID: choiceID,
	}

	counts, err := s.repo.Cast(ctx, v)
	if err != nil {
		return nil, err
	}

	total := applyPercentages(counts)
	return &Receipt{
		Vote:       *v,
		TotalVotes: total,
		Choices:    counts,
	}, nil
}

// Results reads the aggregate as of the latest committed vote and
// annotates it for the requesting user. An anonymous viewer (nil
// viewerID) always sees results; an authenticated one sees them once
// voted.
func (s *Service) Results(ctx context.Context, pollID int64, viewerID *int64) (*Results, error) {
	question, counts, err := s.repo.CountsByPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	total := applyPercentages(counts)

	res := &Results{
		PollID:      pollID,
		Question:    question,
		TotalVotes:  total,
		Choices:     counts,
		ShowResults: true,
	}

	if viewerID != nil {
		choiceID, err := s.repo.UserVote(ctx, pollID, *viewerID)
		if err != nil {
			return nil, err
		}
		res.UserHasVoted = choiceID != nil
		res.UserVoteChoiceID = choiceID
		res.ShowResults = res.UserHasVoted
	}

	return res, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	if limit < 1 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountByUser(ctx, userID)
}

// applyPercentages fills in rounded percentages and returns the total.
// A poll with zero votes reports every choice at 0, not an error.
func applyPercentages(counts []ChoiceCount) int64 {
	var total int64
	for _, c := range counts {
		total += c.Votes
	}
	if total == 0 {
		return 0
	}
	for i := range counts {
		counts[i].Percentage = int(math.Round(float64(counts[i].Votes) * 100.0 / float64(total)))
	}
	return total
}
