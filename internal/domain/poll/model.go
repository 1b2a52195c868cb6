package poll

import (
	"context"
	"time"
)

type Poll struct {
	ID          int64     `json:"id"`
	Question    string    `json:"question"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatorID   int64     `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Choice display order is insertion order, which the storage layer keeps
// as ascending id. VoteCount is maintained by the vote ledger inside the
// vote transaction and is never written from here.
type Choice struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	Text      string    `json:"text"`
	VoteCount int64     `json:"vote_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is one row of the poll catalog, annotated with the requesting
// user's vote status so listings need no follow-up calls.
type Summary struct {
	Poll
	TotalVotes       int64  `json:"total_votes"`
	UserHasVoted     bool   `json:"user_has_voted"`
	UserVoteChoiceID *int64 `json:"user_vote_choice_id,omitempty"`
}

type Detail struct {
	Poll
	Choices          []Choice `json:"choices"`
	TotalVotes       int64    `json:"total_votes"`
	UserHasVoted     bool     `json:"user_has_voted"`
	UserVoteChoiceID *int64   `json:"user_vote_choice_id,omitempty"`
}

type ListFilter struct {
	Search   string
	Limit    int
	Offset   int
	ViewerID *int64
}

type Repository interface {
	Create(ctx context.Context, p *Poll, choices []Choice) (int64, error)
	GetByID(ctx context.Context, id int64, viewerID *int64) (*Detail, error)
	List(ctx context.Context, f ListFilter) ([]Summary, int64, error)
	// Delete removes the poll only while it has no votes and reports
	// whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
}
