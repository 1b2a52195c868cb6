package postgres

import (
	"context"
	"database/sql"

	"voting-app/internal/domain/poll"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, choices []poll.Choice) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	queryPoll := `
        INSERT INTO polls (question, description, is_active, creator_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err = tx.QueryRowContext(ctx, queryPoll,
		p.Question, p.Description, p.IsActive, p.CreatorID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return 0, err
	}

	queryChoice := `
        INSERT INTO choices (poll_id, text)
        VALUES ($1, $2)
        RETURNING id, created_at
    `
	for i := range choices {
		choices[i].PollID = p.ID
		if err := tx.QueryRowContext(ctx, queryChoice, choices[i].PollID, choices[i].Text).
			Scan(&choices[i].ID, &choices[i].CreatedAt); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id int64, viewerID *int64) (*poll.Detail, error) {
	d := &poll.Detail{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, question, description, is_active, creator_id, created_at, updated_at
        FROM polls WHERE id = $1
    `, id).Scan(
		&d.ID, &d.Question, &d.Description, &d.IsActive,
		&d.CreatorID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, poll.ErrPollNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, poll_id, text, vote_count, created_at
        FROM choices WHERE poll_id = $1
        ORDER BY id
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c poll.Choice
		if err := rows.Scan(&c.ID, &c.PollID, &c.Text, &c.VoteCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		d.TotalVotes += c.VoteCount
		d.Choices = append(d.Choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if viewerID != nil {
		var choiceID int64
		err := r.db.QueryRowContext(ctx,
			`SELECT choice_id FROM votes WHERE poll_id = $1 AND user_id = $2`,
			id, *viewerID,
		).Scan(&choiceID)
		switch err {
		case nil:
			d.UserHasVoted = true
			d.UserVoteChoiceID = &choiceID
		case sql.ErrNoRows:
		default:
			return nil, err
		}
	}

	return d, nil
}

// List pages through active polls newest-first. The id tiebreak keeps
// the order deterministic when two polls share a creation timestamp, so
// pagination never duplicates or drops rows. The viewer's vote is joined
// in the same statement instead of a per-row lookup.
func (r *PollRepo) List(ctx context.Context, f poll.ListFilter) ([]poll.Summary, int64, error) {
	var viewerID int64
	if f.ViewerID != nil {
		viewerID = *f.ViewerID
	}

	search := "%" + f.Search + "%"

	var total int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM polls
        WHERE is_active AND question ILIKE $1
    `, search).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT p.id, p.question, p.description, p.is_active, p.creator_id,
               p.created_at, p.updated_at,
               COALESCE((SELECT SUM(c.vote_count) FROM choices c WHERE c.poll_id = p.id), 0),
               v.choice_id
        FROM polls p
        LEFT JOIN votes v ON v.poll_id = p.id AND v.user_id = $2
        WHERE p.is_active AND p.question ILIKE $1
        ORDER BY p.created_at DESC, p.id DESC
        LIMIT $3 OFFSET $4
    `, search, viewerID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	res := []poll.Summary{}
	for rows.Next() {
		var s poll.Summary
		var choiceID sql.NullInt64
		if err := rows.Scan(
			&s.ID, &s.Question, &s.Description, &s.IsActive, &s.CreatorID,
			&s.CreatedAt, &s.UpdatedAt, &s.TotalVotes, &choiceID,
		); err != nil {
			return nil, 0, err
		}
		if f.ViewerID != nil && choiceID.Valid {
			s.UserHasVoted = true
			s.UserVoteChoiceID = &choiceID.Int64
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return res, total, nil
}

func (r *PollRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM polls
        WHERE id = $1
          AND NOT EXISTS (SELECT 1 FROM votes WHERE poll_id = $1)
    `, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
