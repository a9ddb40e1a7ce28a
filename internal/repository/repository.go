package repository

import (
	"context"
	"time"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
)

// UserRepository persists mirrored identity-provider users.
type UserRepository interface {
	UpsertUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
}

// QuizRepository persists quizzes.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error)
	ListQuizzes(ctx context.Context, creatorID string, limit, offset int) ([]domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error
	DeleteQuiz(ctx context.Context, id string) error
}

// SessionRepository persists hosted quiz sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByID(ctx context.Context, id string) (*domain.Session, error)
	AddParticipant(ctx context.Context, sessionID, userID string, joinedAt time.Time) (*domain.Session, error)
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error)
	ListSessions(ctx context.Context, status string, limit int) ([]domain.Session, error)
	SessionStats(ctx context.Context) (domain.SessionStats, error)
}

// ContestRepository persists contests and their scores.
type ContestRepository interface {
	CreateContest(ctx context.Context, contest *domain.Contest) error
	GetContestByID(ctx context.Context, id string) (*domain.Contest, error)
	ListContests(ctx context.Context, limit int) ([]domain.Contest, error)
	UpsertEntry(ctx context.Context, entry *domain.ContestEntry) (*domain.ContestEntry, error)
	ListEntries(ctx context.Context, contestID string, limit int) ([]domain.ContestEntry, error)
}

// StatsRepository aggregates dashboard figures.
type StatsRepository interface {
	DashboardCounts(ctx context.Context, now time.Time) (domain.DashboardCounts, error)
	RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
	TopPerformers(ctx context.Context, limit int) ([]domain.Performer, error)
}
