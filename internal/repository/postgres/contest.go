package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
)

const contestColumns = `id, title, quiz_id, starts_at, ends_at, created_by, created_at`

// CreateContest inserts a contest.
func (r *Repository) CreateContest(ctx context.Context, contest *domain.Contest) error {
	const query = `INSERT INTO contests (id, title, quiz_id, starts_at, ends_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, contest.ID, contest.Title, contest.QuizID, contest.StartsAt, contest.EndsAt, contest.CreatedBy, contest.CreatedAt)
	return mapWriteError(err)
}

// GetContestByID fetches a contest.
func (r *Repository) GetContestByID(ctx context.Context, id string) (*domain.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`
	var c domain.Contest
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Title, &c.QuizID, &c.StartsAt, &c.EndsAt, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListContests returns contests by start time, latest first.
func (r *Repository) ListContests(ctx context.Context, limit int) ([]domain.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests ORDER BY starts_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contests := make([]domain.Contest, 0)
	for rows.Next() {
		var c domain.Contest
		if err := rows.Scan(&c.ID, &c.Title, &c.QuizID, &c.StartsAt, &c.EndsAt, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

// UpsertEntry stores a score, keeping only the best one per user. The
// returned entry is the one on record after the write.
func (r *Repository) UpsertEntry(ctx context.Context, entry *domain.ContestEntry) (*domain.ContestEntry, error) {
	const upsert = `INSERT INTO contest_entries (contest_id, user_id, score, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contest_id, user_id) DO UPDATE
			SET score = EXCLUDED.score, submitted_at = EXCLUDED.submitted_at
			WHERE contest_entries.score < EXCLUDED.score
		RETURNING score, submitted_at`
	stored := *entry
	err := r.pool.QueryRow(ctx, upsert, entry.ContestID, entry.UserID, entry.Score, entry.SubmittedAt).Scan(&stored.Score, &stored.SubmittedAt)
	if err == nil {
		return &stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapWriteError(err)
	}
	// The existing score was higher; report it unchanged.
	const current = `SELECT score, submitted_at FROM contest_entries WHERE contest_id = $1 AND user_id = $2`
	if err := r.pool.QueryRow(ctx, current, entry.ContestID, entry.UserID).Scan(&stored.Score, &stored.SubmittedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &stored, nil
}

// ListEntries returns a contest's entries in leaderboard order.
func (r *Repository) ListEntries(ctx context.Context, contestID string, limit int) ([]domain.ContestEntry, error) {
	const query = `SELECT e.contest_id, e.user_id, COALESCE(NULLIF(u.display_name, ''), u.email), e.score, e.submitted_at
		FROM contest_entries e
		INNER JOIN users u ON u.id = e.user_id
		WHERE e.contest_id = $1
		ORDER BY e.score DESC, e.submitted_at ASC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, contestID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.ContestEntry, 0)
	for rows.Next() {
		var e domain.ContestEntry
		if err := rows.Scan(&e.ContestID, &e.UserID, &e.DisplayName, &e.Score, &e.SubmittedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
