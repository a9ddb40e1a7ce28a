package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
)

var (
	errMissingQuizID = fmt.Errorf("%w: quizId is required", domain.ErrInvalidInput)
	// ErrSessionClosed is returned when joining or ending a completed session.
	ErrSessionClosed = fmt.Errorf("session already completed: %w", repository.ErrConflict)
)

// Service runs hosted quiz sessions.
type Service struct {
	sessions repository.SessionRepository
	quizzes  repository.QuizRepository
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a session service.
func New(sessions repository.SessionRepository, quizzes repository.QuizRepository, logger *slog.Logger) Service {
	return Service{sessions: sessions, quizzes: quizzes, logger: logger, now: time.Now}
}

// Start opens an active session of quizID hosted by the caller.
func (s Service) Start(ctx context.Context, caller domain.User, quizID string) (*domain.Session, error) {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		return nil, errMissingQuizID
	}
	if _, err := s.quizzes.GetQuizByID(ctx, quizID); err != nil {
		return nil, err
	}
	session := &domain.Session{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		HostID:    caller.ID,
		Status:    domain.SessionStatusActive,
		StartedAt: s.now().UTC(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	s.log().Info("session started", "session_id", session.ID, "quiz_id", quizID, "host_id", caller.ID)
	return session, nil
}

// Join adds the caller to an active session. Joining twice is a no-op.
func (s Service) Join(ctx context.Context, caller domain.User, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.AddParticipant(ctx, strings.TrimSpace(sessionID), caller.ID, s.now().UTC())
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrSessionClosed
	}
	return session, err
}

// End completes a session. Only the host or an admin may.
func (s Service) End(ctx context.Context, caller domain.User, sessionID string) (*domain.Session, error) {
	current, err := s.sessions.GetSessionByID(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, err
	}
	if current.HostID != caller.ID && !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	ended, err := s.sessions.EndSession(ctx, current.ID, s.now().UTC())
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrSessionClosed
	}
	if err != nil {
		return nil, err
	}
	s.log().Info("session ended", "session_id", ended.ID, "participants", ended.ParticipantCount)
	return ended, nil
}

// List returns sessions, optionally filtered by status.
func (s Service) List(ctx context.Context, status string, limit int) ([]domain.Session, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.SessionStatusActive, domain.SessionStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: unknown session status %q", domain.ErrInvalidInput, status)
	}
	return s.sessions.ListSessions(ctx, status, limit)
}

func (s Service) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
