package vote

import (
	"context"
	"time"
)

type Vote struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	PollID   int64     `json:"poll_id"`
	ChoiceID int64     `json:"choice_id"`
	VotedAt  time.Time `json:"voted_at"`
}

type ChoiceCount struct {
	ChoiceID   int64  `json:"choice_id"`
	Text       string `json:"text"`
	Votes      int64  `json:"votes"`
	Percentage int    `json:"percentage"`
}

// Receipt confirms a recorded vote together with the counts as of the
// commit that recorded it.
type Receipt struct {
	Vote
	TotalVotes int64         `json:"total_votes"`
	Choices    []ChoiceCount `json:"choices"`
}

type Results struct {
	PollID           int64         `json:"poll_id"`
	Question         string        `json:"question"`
	TotalVotes       int64         `json:"total_votes"`
	Choices          []ChoiceCount `json:"choices"`
	UserHasVoted     bool          `json:"user_has_voted"`
	UserVoteChoiceID *int64        `json:"user_vote_choice_id,omitempty"`
	ShowResults      bool          `json:"show_results"`
}

type HistoryEntry struct {
	ID           int64     `json:"id"`
	PollID       int64     `json:"poll_id"`
	PollQuestion string    `json:"poll_question"`
	ChoiceID     int64     `json:"choice_id"`
	ChoiceText   string    `json:"choice_text"`
	VotedAt      time.Time `json:"voted_at"`
}

type Repository interface {
	// Cast validates the poll and choice, inserts the vote and bumps the
	// choice counter in a single transaction, then returns the per-choice
	// counts as committed. The votes(user_id, poll_id) unique constraint
	// is the sole duplicate-vote enforcement point.
	Cast(ctx context.Context, v *Vote) ([]ChoiceCount, error)
	// CountsByPoll reads the live counters for every choice of the poll.
	CountsByPoll(ctx context.Context, pollID int64) (string, []ChoiceCount, error)
	// UserVote reports which choice the user picked, nil if none.
	UserVote(ctx context.Context, pollID, userID int64) (*int64, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}
