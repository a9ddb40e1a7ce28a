package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
)

const quizColumns = `id, title, description, creator_id, created_at, updated_at`

// CreateQuiz inserts a quiz.
func (r *Repository) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	const query = `INSERT INTO quizzes (id, title, description, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, quiz.ID, quiz.Title, quiz.Description, quiz.CreatorID, quiz.CreatedAt, quiz.UpdatedAt)
	return mapWriteError(err)
}

// GetQuizByID fetches a quiz.
func (r *Repository) GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1`
	var q domain.Quiz
	err := r.pool.QueryRow(ctx, query, id).Scan(&q.ID, &q.Title, &q.Description, &q.CreatorID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// ListQuizzes returns quizzes, optionally restricted to one creator.
func (r *Repository) ListQuizzes(ctx context.Context, creatorID string, limit, offset int) ([]domain.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes
		WHERE ($1::text = '' OR creator_id = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, creatorID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var q domain.Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.CreatorID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// UpdateQuiz stores the title and description of an existing quiz.
func (r *Repository) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	const query = `UPDATE quizzes SET title = $2, description = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, quiz.ID, quiz.Title, quiz.Description, quiz.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteQuiz removes a quiz and, through cascades, its sessions and contests.
func (r *Repository) DeleteQuiz(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
