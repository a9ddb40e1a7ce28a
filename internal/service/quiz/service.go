package quiz

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
	"github.com/nielpattin/quizzy-sub001/internal/validate"
)

// Service manages quizzes.
type Service struct {
	quizzes repository.QuizRepository
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a quiz service.
func New(quizzes repository.QuizRepository, logger *slog.Logger) Service {
	return Service{quizzes: quizzes, logger: logger, now: time.Now}
}

// Create stores a quiz authored by the caller.
func (s Service) Create(ctx context.Context, caller domain.User, input domain.QuizInput) (*domain.Quiz, error) {
	input = normalize(input)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	quiz := &domain.Quiz{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		CreatorID:   caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	s.log().Info("quiz created", "quiz_id", quiz.ID, "creator_id", caller.ID)
	return quiz, nil
}

// Get returns a quiz by id.
func (s Service) Get(ctx context.Context, id string) (*domain.Quiz, error) {
	return s.quizzes.GetQuizByID(ctx, strings.TrimSpace(id))
}

// List pages through quizzes, optionally limited to one creator.
func (s Service) List(ctx context.Context, creatorID string, limit, offset int) ([]domain.Quiz, error) {
	if offset < 0 {
		offset = 0
	}
	return s.quizzes.ListQuizzes(ctx, strings.TrimSpace(creatorID), limit, offset)
}

// Update rewrites title and description. Only the creator or an admin may.
func (s Service) Update(ctx context.Context, caller domain.User, id string, input domain.QuizInput) (*domain.Quiz, error) {
	input = normalize(input)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	quiz, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	quiz.Title = input.Title
	quiz.Description = input.Description
	quiz.UpdatedAt = s.now().UTC()
	if err := s.quizzes.UpdateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Delete removes a quiz. Only the creator or an admin may.
func (s Service) Delete(ctx context.Context, caller domain.User, id string) error {
	quiz, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuiz(ctx, quiz.ID); err != nil {
		return err
	}
	s.log().Info("quiz deleted", "quiz_id", quiz.ID, "by", caller.ID)
	return nil
}

func (s Service) owned(ctx context.Context, caller domain.User, id string) (*domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuizByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if quiz.CreatorID != caller.ID && !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return quiz, nil
}

func (s Service) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

func normalize(input domain.QuizInput) domain.QuizInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	return input
}
