package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"voting-app/internal/domain/vote"
)

const uniqueViolation = "23505"

type VoteRepo struct {
	db *sql.DB
}

func NewVoteRepo(db *sql.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Cast runs the whole ledger write as one transaction: validate poll and
// choice, insert the vote, bump the choice counter, read back the counts.
// There is deliberately no "has this user voted" pre-check; the unique
// constraint on votes(user_id, poll_id) decides, which keeps concurrent
// duplicates down to exactly one success.
func (r *VoteRepo) Cast(ctx context.Context, v *vote.Vote) ([]vote.ChoiceCount, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var isActive bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_active FROM polls WHERE id = $1`, v.PollID).Scan(&isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, vote.ErrPollNotFound
		}
		return nil, err
	}
	if !isActive {
		return nil, vote.ErrPollNotActive
	}

	var choiceExists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM choices WHERE id = $1 AND poll_id = $2)`,
		v.ChoiceID, v.PollID).Scan(&choiceExists)
	if err != nil {
		return nil, err
	}
	if !choiceExists {
		return nil, vote.ErrChoiceNotInPoll
	}

	err = tx.QueryRowContext(ctx, `
        INSERT INTO votes (user_id, poll_id, choice_id)
        VALUES ($1, $2, $3)
        RETURNING id, voted_at
    `, v.UserID, v.PollID, v.ChoiceID).Scan(&v.ID, &v.VotedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, vote.ErrAlreadyVoted
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE choices SET vote_count = vote_count + 1 WHERE id = $1`, v.ChoiceID); err != nil {
		return nil, err
	}

	counts, err := scanCounts(tx.QueryContext(ctx, `
        SELECT id, text, vote_count FROM choices
        WHERE poll_id = $1 ORDER BY id
    `, v.PollID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *VoteRepo) CountsByPoll(ctx context.Context, pollID int64) (string, []vote.ChoiceCount, error) {
	var question string
	err := r.db.QueryRowContext(ctx,
		`SELECT question FROM polls WHERE id = $1`, pollID).Scan(&question)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, vote.ErrPollNotFound
		}
		return "", nil, err
	}

	counts, err := scanCounts(r.db.QueryContext(ctx, `
        SELECT id, text, vote_count FROM choices
        WHERE poll_id = $1 ORDER BY id
    `, pollID))
	if err != nil {
		return "", nil, err
	}
	return question, counts, nil
}

func (r *VoteRepo) UserVote(ctx context.Context, pollID, userID int64) (*int64, error) {
	var choiceID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT choice_id FROM votes WHERE poll_id = $1 AND user_id = $2`,
		pollID, userID).Scan(&choiceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &choiceID, nil
}

func (r *VoteRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]vote.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT v.id, v.poll_id, p.question, v.choice_id, c.text, v.voted_at
        FROM votes v
        JOIN polls p ON p.id = v.poll_id
        JOIN choices c ON c.id = v.choice_id
        WHERE v.user_id = $1
        ORDER BY v.voted_at DESC, v.id DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []vote.HistoryEntry{}
	for rows.Next() {
		var e vote.HistoryEntry
		if err := rows.Scan(&e.ID, &e.PollID, &e.PollQuestion, &e.ChoiceID, &e.ChoiceText, &e.VotedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r *VoteRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func scanCounts(rows *sql.Rows, err error) ([]vote.ChoiceCount, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []vote.ChoiceCount{}
	for rows.Next() {
		var c vote.ChoiceCount
		if err := rows.Scan(&c.ChoiceID, &c.Text, &c.Votes); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
