package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
)

func TestRoleSharesSumToHundred(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	for members := 0; members <= 97; members++ {
		total := 97
		m, e := RoleShares(members, total-members, total)
		sum := decimal.NewFromFloat(m).Add(decimal.NewFromFloat(e))
		if !sum.Equal(hundred) {
			t.Fatalf("members=%d: %v + %v = %s", members, m, e, sum)
		}
	}
}

func TestRoleSharesWithOtherRoles(t *testing.T) {
	m, e := RoleShares(1, 1, 3)
	if m != 33.3 || e != 33.3 {
		t.Fatalf("expected independent shares 33.3/33.3, got %v/%v", m, e)
	}
}

func TestRoleSharesZeroTotal(t *testing.T) {
	if m, e := RoleShares(0, 0, 0); m != 0 || e != 0 {
		t.Fatalf("expected 0/0, got %v/%v", m, e)
	}
}

func TestPercentagesAndRatio(t *testing.T) {
	if got := Percentages(2, 3); got != 66.7 {
		t.Fatalf("Percentages(2,3) = %v", got)
	}
	if got := Percentages(5, 0); got != 0 {
		t.Fatalf("Percentages with zero total = %v", got)
	}
	if got := Ratio(7, 2); got != 3.5 {
		t.Fatalf("Ratio(7,2) = %v", got)
	}
	if got := Ratio(7, 0); got != 0 {
		t.Fatalf("Ratio with zero divisor = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, time.February, 2, 8, 0, 0, 0, time.UTC)
	got := Summarize(domain.DashboardCounts{
		TotalUsers:        3,
		Members:           1,
		Employees:         2,
		TotalSessions:     4,
		CompletedSessions: 3,
		TotalParticipants: 10,
	}, now)
	if got.Roles.MembersPercentage != 33.3 || got.Roles.EmployeesPercentage != 66.7 {
		t.Fatalf("unexpected roles: %+v", got.Roles)
	}
	if got.Engagement.CompletionRate != 75 || got.Engagement.AvgParticipantsPerSession != 2.5 {
		t.Fatalf("unexpected engagement: %+v", got.Engagement)
	}
	if !got.GeneratedAt.Equal(now) {
		t.Fatalf("unexpected generatedAt: %s", got.GeneratedAt)
	}
}

type stubStatsRepository struct {
	countCalls int
	counts     domain.DashboardCounts
	performers []domain.Performer
}

func (s *stubStatsRepository) DashboardCounts(ctx context.Context, now time.Time) (domain.DashboardCounts, error) {
	s.countCalls++
	return s.counts, nil
}

func (s *stubStatsRepository) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	return nil, nil
}

func (s *stubStatsRepository) TopPerformers(ctx context.Context, limit int) ([]domain.Performer, error) {
	return append([]domain.Performer(nil), s.performers...), nil
}

type stubSessionStats struct {
	repository.SessionRepository
	calls int
	err   error
}

func (s *stubSessionStats) SessionStats(ctx context.Context) (domain.SessionStats, error) {
	s.calls++
	return domain.SessionStats{TotalSessions: 4, AvgDuration: 12.5}, s.err
}

type failingCache struct{}

func (failingCache) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("cache down")
}
func (failingCache) Delete(context.Context, ...string) error { return nil }

func TestDashboardServedFromCacheUntilStale(t *testing.T) {
	repo := &stubStatsRepository{counts: domain.DashboardCounts{TotalUsers: 2, Members: 1, Employees: 1}}
	cache := NewMemoryCache()
	now := time.Date(2026, time.February, 2, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	svc := New(repo, &stubSessionStats{}, cache, time.Minute, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.Dashboard(context.Background()); err != nil {
			t.Fatalf("Dashboard: %v", err)
		}
	}
	if repo.countCalls != 1 {
		t.Fatalf("expected 1 repository call within stale window, got %d", repo.countCalls)
	}
	now = now.Add(time.Minute)
	if _, err := svc.Dashboard(context.Background()); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if repo.countCalls != 2 {
		t.Fatalf("expected refresh after stale window, got %d calls", repo.countCalls)
	}
}

func TestSessionStatsFallsThroughBrokenCache(t *testing.T) {
	sessions := &stubSessionStats{}
	svc := New(&stubStatsRepository{}, sessions, failingCache{}, 0, nil)

	got, err := svc.SessionStats(context.Background())
	if err != nil {
		t.Fatalf("SessionStats: %v", err)
	}
	if got.TotalSessions != 4 || got.AvgDuration != 12.5 || sessions.calls != 1 {
		t.Fatalf("unexpected stats %+v after %d calls", got, sessions.calls)
	}
}

func TestInvalidateDropsCachedStats(t *testing.T) {
	sessions := &stubSessionStats{}
	svc := New(&stubStatsRepository{}, sessions, NewMemoryCache(), time.Hour, nil)
	ctx := context.Background()

	_, _ = svc.SessionStats(ctx)
	_, _ = svc.SessionStats(ctx)
	svc.Invalidate(ctx)
	_, _ = svc.SessionStats(ctx)
	if sessions.calls != 2 {
		t.Fatalf("expected 2 repository calls, got %d", sessions.calls)
	}
}

func TestPerformersRankTies(t *testing.T) {
	repo := &stubStatsRepository{performers: []domain.Performer{
		{UserID: "a", TotalScore: 300},
		{UserID: "b", TotalScore: 250},
		{UserID: "c", TotalScore: 250},
		{UserID: "d", TotalScore: 100},
	}}
	svc := New(repo, &stubSessionStats{}, nil, 0, nil)
	got, err := svc.Performers(context.Background(), 10)
	if err != nil {
		t.Fatalf("Performers: %v", err)
	}
	want := []int{1, 2, 2, 4}
	for i, p := range got {
		if p.Rank != want[i] {
			t.Fatalf("%s: expected rank %d, got %d", p.UserID, want[i], p.Rank)
		}
	}
}
