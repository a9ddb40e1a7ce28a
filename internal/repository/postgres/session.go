package postgres

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
)

const sessionSelect = `SELECT s.id, s.quiz_id, s.host_id, s.status, s.started_at, s.ended_at,
		(SELECT COUNT(1) FROM session_participants p WHERE p.session_id = s.id)
	FROM sessions s`

// CreateSession inserts an active session.
func (r *Repository) CreateSession(ctx context.Context, session *domain.Session) error {
	const query = `INSERT INTO sessions (id, quiz_id, host_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, session.ID, session.QuizID, session.HostID, session.Status, session.StartedAt)
	return mapWriteError(err)
}

// GetSessionByID fetches a session with its participant count.
func (r *Repository) GetSessionByID(ctx context.Context, id string) (*domain.Session, error) {
	return scanSession(r.pool.QueryRow(ctx, sessionSelect+` WHERE s.id = $1`, id))
}

// AddParticipant records a participant; joining twice is a no-op.
func (r *Repository) AddParticipant(ctx context.Context, sessionID, userID string, joinedAt time.Time) (*domain.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SessionStatusActive {
		return nil, repository.ErrConflict
	}
	const insert = `INSERT INTO session_participants (session_id, user_id, joined_at)
		VALUES ($1, $2, $3) ON CONFLICT (session_id, user_id) DO NOTHING`
	if _, err := tx.Exec(ctx, insert, sessionID, userID, joinedAt); err != nil {
		return nil, mapWriteError(err)
	}
	session, err := scanSession(tx.QueryRow(ctx, sessionSelect+` WHERE s.id = $1`, sessionID))
	if err != nil {
		return nil, err
	}
	return session, tx.Commit(ctx)
}

// EndSession marks an active session completed.
func (r *Repository) EndSession(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error) {
	const query = `UPDATE sessions SET status = 'completed', ended_at = $2
		WHERE id = $1 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, query, sessionID, endedAt)
	if err != nil {
		return nil, err
	}
	session, err := r.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return session, repository.ErrConflict
	}
	return session, nil
}

// ListSessions returns the most recent sessions, optionally by status.
func (r *Repository) ListSessions(ctx context.Context, status string, limit int) ([]domain.Session, error) {
	query := sessionSelect + ` WHERE ($1::text = '' OR s.status = $1) ORDER BY s.started_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// SessionStats aggregates the session manager cards.
func (r *Repository) SessionStats(ctx context.Context) (domain.SessionStats, error) {
	const query = `SELECT
			COUNT(1),
			COUNT(1) FILTER (WHERE status = 'active'),
			COUNT(1) FILTER (WHERE status = 'completed'),
			(SELECT COUNT(1) FROM session_participants),
			(AVG(EXTRACT(EPOCH FROM (ended_at - started_at))) FILTER (WHERE status = 'completed' AND ended_at IS NOT NULL))::float8
		FROM sessions`
	var (
		stats      domain.SessionStats
		avgSeconds sql.NullFloat64
	)
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalSessions,
		&stats.ActiveSessions,
		&stats.CompletedSessions,
		&stats.TotalParticipants,
		&avgSeconds,
	)
	if err != nil {
		return domain.SessionStats{}, err
	}
	if avgSeconds.Valid {
		stats.AvgDuration = math.Round(avgSeconds.Float64/60*10) / 10
	}
	return stats, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		s       domain.Session
		endedAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.QuizID, &s.HostID, &s.Status, &s.StartedAt, &endedAt, &s.ParticipantCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return &s, nil
}
