package httpx

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
)

// memoryStore backs every repository interface for router tests.
type memoryStore struct {
	mu           sync.Mutex
	users        map[string]domain.User
	quizzes      map[string]domain.Quiz
	sessions     map[string]domain.Session
	participants map[string]map[string]bool
	contests     map[string]domain.Contest
	entries      map[string]map[string]domain.ContestEntry
	lastLimit    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        make(map[string]domain.User),
		quizzes:      make(map[string]domain.Quiz),
		sessions:     make(map[string]domain.Session),
		participants: make(map[string]map[string]bool),
		contests:     make(map[string]domain.Contest),
		entries:      make(map[string]map[string]domain.ContestEntry),
	}
}

func (m *memoryStore) UpsertUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[user.ID]; ok {
		user.Role = existing.Role
		user.CreatedAt = existing.CreatedAt
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryStore) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[quiz.ID] = *quiz
	return nil
}

func (m *memoryStore) GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.quizzes[id]; ok {
		return &q, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListQuizzes(ctx context.Context, creatorID string, limit, offset int) ([]domain.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := make([]domain.Quiz, 0)
	for _, q := range m.quizzes {
		if creatorID == "" || q.CreatorID == creatorID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[quiz.ID]; !ok {
		return repository.ErrNotFound
	}
	m.quizzes[quiz.ID] = *quiz
	return nil
}

func (m *memoryStore) DeleteQuiz(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.quizzes, id)
	return nil
}

func (m *memoryStore) CreateSession(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

func (m *memoryStore) GetSessionByID(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) AddParticipant(ctx context.Context, sessionID, userID string, joinedAt time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.Status != domain.SessionStatusActive {
		return nil, repository.ErrConflict
	}
	if m.participants[sessionID] == nil {
		m.participants[sessionID] = make(map[string]bool)
	}
	m.participants[sessionID][userID] = true
	s.ParticipantCount = len(m.participants[sessionID])
	m.sessions[sessionID] = s
	return &s, nil
}

func (m *memoryStore) EndSession(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.Status == domain.SessionStatusCompleted {
		return &s, repository.ErrConflict
	}
	s.Status = domain.SessionStatusCompleted
	s.EndedAt = &endedAt
	m.sessions[sessionID] = s
	return &s, nil
}

func (m *memoryStore) ListSessions(ctx context.Context, status string, limit int) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := make([]domain.Session, 0)
	for _, s := range m.sessions {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) SessionStats(ctx context.Context) (domain.SessionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st domain.SessionStats
	for id, s := range m.sessions {
		st.TotalSessions++
		if s.Status == domain.SessionStatusActive {
			st.ActiveSessions++
		} else {
			st.CompletedSessions++
		}
		st.TotalParticipants += len(m.participants[id])
	}
	return st, nil
}

func (m *memoryStore) CreateContest(ctx context.Context, contest *domain.Contest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contests[contest.ID] = *contest
	return nil
}

func (m *memoryStore) GetContestByID(ctx context.Context, id string) (*domain.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contests[id]; ok {
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListContests(ctx context.Context, limit int) ([]domain.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Contest, 0, len(m.contests))
	for _, c := range m.contests {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryStore) UpsertEntry(ctx context.Context, entry *domain.ContestEntry) (*domain.ContestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[entry.ContestID] == nil {
		m.entries[entry.ContestID] = make(map[string]domain.ContestEntry)
	}
	current, ok := m.entries[entry.ContestID][entry.UserID]
	if !ok || entry.Score > current.Score {
		current = *entry
		if u, ok := m.users[entry.UserID]; ok {
			current.DisplayName = u.DisplayName
		}
		m.entries[entry.ContestID][entry.UserID] = current
	}
	return &current, nil
}

func (m *memoryStore) ListEntries(ctx context.Context, contestID string, limit int) ([]domain.ContestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ContestEntry, 0)
	for _, e := range m.entries[contestID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) DashboardCounts(ctx context.Context, now time.Time) (domain.DashboardCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c domain.DashboardCounts
	for _, u := range m.users {
		c.TotalUsers++
		switch u.Role {
		case domain.RoleMember:
			c.Members++
		case domain.RoleEmployee:
			c.Employees++
		case domain.RoleAdmin:
			c.Admins++
		}
	}
	c.TotalQuizzes = len(m.quizzes)
	c.TotalContests = len(m.contests)
	for _, ct := range m.contests {
		if ct.StatusAt(now) == domain.ContestStatusLive {
			c.LiveContests++
		}
	}
	for id, s := range m.sessions {
		c.TotalSessions++
		if s.Status == domain.SessionStatusCompleted {
			c.CompletedSessions++
		}
		c.TotalParticipants += len(m.participants[id])
	}
	return c, nil
}

func (m *memoryStore) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ActivityEntry, 0)
	for _, q := range m.quizzes {
		out = append(out, domain.ActivityEntry{Type: domain.ActivityQuizCreated, ActorID: q.CreatorID, Subject: q.Title, OccurredAt: q.CreatedAt})
	}
	return out, nil
}

func (m *memoryStore) TopPerformers(ctx context.Context, limit int) ([]domain.Performer, error) {
	return []domain.Performer{}, nil
}

var (
	_ repository.UserRepository    = (*memoryStore)(nil)
	_ repository.QuizRepository    = (*memoryStore)(nil)
	_ repository.SessionRepository = (*memoryStore)(nil)
	_ repository.ContestRepository = (*memoryStore)(nil)
	_ repository.StatsRepository   = (*memoryStore)(nil)
)
