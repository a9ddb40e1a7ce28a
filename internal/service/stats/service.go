package stats

import (
	"context"
	"time"

	"log/slog"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
)

// DefaultStaleTime is how long cached aggregates are served.
const DefaultStaleTime = 5 * time.Minute

const (
	keyDashboard = "dashboard"
	keySessions  = "sessions"
)

// Service builds the admin dashboard aggregates.
type Service struct {
	stats     repository.StatsRepository
	sessions  repository.SessionRepository
	cache     Cache
	staleTime time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a stats service. A nil cache disables caching.
func New(stats repository.StatsRepository, sessions repository.SessionRepository, cache Cache, staleTime time.Duration, logger *slog.Logger) Service {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Service{stats: stats, sessions: sessions, cache: cache, staleTime: staleTime, logger: logger, now: time.Now}
}

// Dashboard returns the overview cards.
func (s Service) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	var out domain.DashboardStats
	if s.fromCache(ctx, keyDashboard, &out) {
		return out, nil
	}
	now := s.now().UTC()
	counts, err := s.stats.DashboardCounts(ctx, now)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	out = Summarize(counts, now)
	s.toCache(ctx, keyDashboard, out)
	return out, nil
}

// SessionStats returns the session manager cards.
func (s Service) SessionStats(ctx context.Context) (domain.SessionStats, error) {
	var out domain.SessionStats
	if s.fromCache(ctx, keySessions, &out) {
		return out, nil
	}
	out, err := s.sessions.SessionStats(ctx)
	if err != nil {
		return domain.SessionStats{}, err
	}
	s.toCache(ctx, keySessions, out)
	return out, nil
}

// Invalidate drops cached aggregates, e.g. after a session ends.
func (s Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keyDashboard, keySessions); err != nil {
		s.logger.Warn("stats cache invalidate failed", "error", err)
	}
}

// Activity returns the most recent events across quizzes, sessions and contests.
func (s Service) Activity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	return s.stats.RecentActivity(ctx, limit)
}

// Performers returns the ranked top scorers.
func (s Service) Performers(ctx context.Context, limit int) ([]domain.Performer, error) {
	performers, err := s.stats.TopPerformers(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range performers {
		performers[i].Rank = i + 1
		if i > 0 && performers[i].TotalScore == performers[i-1].TotalScore {
			performers[i].Rank = performers[i-1].Rank
		}
	}
	return performers, nil
}

// Summarize turns raw counts into the dashboard view model.
func Summarize(c domain.DashboardCounts, now time.Time) domain.DashboardStats {
	members, employees := RoleShares(c.Members, c.Employees, c.TotalUsers)
	return domain.DashboardStats{
		TotalUsers:    c.TotalUsers,
		TotalQuizzes:  c.TotalQuizzes,
		TotalContests: c.TotalContests,
		LiveContests:  c.LiveContests,
		Roles: domain.RoleDistribution{
			Total:               c.TotalUsers,
			Members:             c.Members,
			Employees:           c.Employees,
			MembersPercentage:   members,
			EmployeesPercentage: employees,
		},
		Engagement: domain.Engagement{
			CompletionRate:            Percentages(c.CompletedSessions, c.TotalSessions),
			AvgParticipantsPerSession: Ratio(c.TotalParticipants, c.TotalSessions),
		},
		GeneratedAt: now,
	}
}

func (s Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("stats cache read failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (s Service) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.staleTime); err != nil {
		s.logger.Warn("stats cache write failed", "key", key, "error", err)
	}
}
