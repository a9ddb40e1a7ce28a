package postgres

import (
	"context"
	"time"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
)

// DashboardCounts collects every total the admin overview needs in one round trip.
func (r *Repository) DashboardCounts(ctx context.Context, now time.Time) (domain.DashboardCounts, error) {
	const query = `SELECT
			(SELECT COUNT(1) FROM users),
			(SELECT COUNT(1) FROM users WHERE role = 'member'),
			(SELECT COUNT(1) FROM users WHERE role = 'employee'),
			(SELECT COUNT(1) FROM users WHERE role = 'admin'),
			(SELECT COUNT(1) FROM quizzes),
			(SELECT COUNT(1) FROM contests),
			(SELECT COUNT(1) FROM contests WHERE starts_at <= $1 AND ends_at > $1),
			(SELECT COUNT(1) FROM sessions),
			(SELECT COUNT(1) FROM sessions WHERE status = 'completed'),
			(SELECT COUNT(1) FROM session_participants)`
	var c domain.DashboardCounts
	err := r.pool.QueryRow(ctx, query, now).Scan(
		&c.TotalUsers,
		&c.Members,
		&c.Employees,
		&c.Admins,
		&c.TotalQuizzes,
		&c.TotalContests,
		&c.LiveContests,
		&c.TotalSessions,
		&c.CompletedSessions,
		&c.TotalParticipants,
	)
	return c, err
}

// RecentActivity merges quiz creation, session starts and score submissions.
func (r *Repository) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	const query = `SELECT kind, actor_id, actor_name, subject, occurred_at FROM (
			SELECT 'quiz_created' AS kind, q.creator_id AS actor_id, COALESCE(NULLIF(u.display_name, ''), u.email) AS actor_name,
				q.title AS subject, q.created_at AS occurred_at
			FROM quizzes q INNER JOIN users u ON u.id = q.creator_id
			UNION ALL
			SELECT 'session_started', s.host_id, COALESCE(NULLIF(u.display_name, ''), u.email), q.title, s.started_at
			FROM sessions s
				INNER JOIN users u ON u.id = s.host_id
				INNER JOIN quizzes q ON q.id = s.quiz_id
			UNION ALL
			SELECT 'score_submitted', e.user_id, COALESCE(NULLIF(u.display_name, ''), u.email), c.title, e.submitted_at
			FROM contest_entries e
				INNER JOIN users u ON u.id = e.user_id
				INNER JOIN contests c ON c.id = e.contest_id
		) feed
		ORDER BY occurred_at DESC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.ActivityEntry, 0)
	for rows.Next() {
		var e domain.ActivityEntry
		if err := rows.Scan(&e.Type, &e.ActorID, &e.ActorName, &e.Subject, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TopPerformers sums contest scores per user. Rank is assigned by the caller.
func (r *Repository) TopPerformers(ctx context.Context, limit int) ([]domain.Performer, error) {
	const query = `SELECT e.user_id, COALESCE(NULLIF(u.display_name, ''), u.email), SUM(e.score), COUNT(1)
		FROM contest_entries e
		INNER JOIN users u ON u.id = e.user_id
		GROUP BY e.user_id, u.display_name, u.email
		ORDER BY SUM(e.score) DESC, MIN(e.submitted_at) ASC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	performers := make([]domain.Performer, 0)
	for rows.Next() {
		var p domain.Performer
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.TotalScore, &p.Contests); err != nil {
			return nil, err
		}
		performers = append(performers, p)
	}
	return performers, rows.Err()
}
