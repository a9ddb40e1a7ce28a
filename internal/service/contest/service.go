package contest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
	"github.com/nielpattin/quizzy-sub001/internal/validate"
	"github.com/nielpattin/quizzy-sub001/internal/ws"
)

// LeaderboardSize caps the entries pushed to stream subscribers.
const LeaderboardSize = 100

// ErrContestNotLive is returned for scores submitted outside the contest window.
var ErrContestNotLive = fmt.Errorf("contest is not live: %w", repository.ErrConflict)

// Service schedules contests and keeps their leaderboards.
type Service struct {
	contests repository.ContestRepository
	quizzes  repository.QuizRepository
	hub      *ws.Hub
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a contest service. A nil hub disables live updates.
func New(contests repository.ContestRepository, quizzes repository.QuizRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{contests: contests, quizzes: quizzes, hub: hub, logger: logger, now: time.Now}
}

// Hub exposes the leaderboard stream hub.
func (s Service) Hub() *ws.Hub {
	return s.hub
}

// Create schedules a contest over an existing quiz.
func (s Service) Create(ctx context.Context, caller domain.User, input domain.ContestInput) (*domain.Contest, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.QuizID = strings.TrimSpace(input.QuizID)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if _, err := s.quizzes.GetQuizByID(ctx, input.QuizID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	contest := &domain.Contest{
		ID:        uuid.NewString(),
		Title:     input.Title,
		QuizID:    input.QuizID,
		StartsAt:  input.StartsAt.UTC(),
		EndsAt:    input.EndsAt.UTC(),
		CreatedBy: caller.ID,
		CreatedAt: now,
	}
	if err := s.contests.CreateContest(ctx, contest); err != nil {
		return nil, err
	}
	contest.Status = contest.StatusAt(now)
	s.log().Info("contest scheduled", "contest_id", contest.ID, "quiz_id", contest.QuizID, "starts_at", contest.StartsAt)
	return contest, nil
}

// List returns contests with their status derived from the clock.
func (s Service) List(ctx context.Context, limit int) ([]domain.Contest, error) {
	contests, err := s.contests.ListContests(ctx, limit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range contests {
		contests[i].Status = contests[i].StatusAt(now)
	}
	return contests, nil
}

// Leaderboard returns the ranked entries of a contest.
func (s Service) Leaderboard(ctx context.Context, contestID string, limit int) ([]domain.LeaderboardEntry, error) {
	contestID = strings.TrimSpace(contestID)
	if _, err := s.contests.GetContestByID(ctx, contestID); err != nil {
		return nil, err
	}
	entries, err := s.contests.ListEntries(ctx, contestID, limit)
	if err != nil {
		return nil, err
	}
	return Rank(entries), nil
}

// SubmitScore records the caller's score while the contest is live and
// pushes the refreshed leaderboard to subscribers.
func (s Service) SubmitScore(ctx context.Context, caller domain.User, contestID string, input domain.ScoreInput) (*domain.ContestEntry, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	contest, err := s.contests.GetContestByID(ctx, strings.TrimSpace(contestID))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if contest.StatusAt(now) != domain.ContestStatusLive {
		return nil, ErrContestNotLive
	}
	entry, err := s.contests.UpsertEntry(ctx, &domain.ContestEntry{
		ContestID:   contest.ID,
		UserID:      caller.ID,
		DisplayName: caller.DisplayName,
		Score:       *input.Score,
		SubmittedAt: now,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, contest.ID)
	return entry, nil
}

func (s Service) publish(ctx context.Context, contestID string) {
	if s.hub == nil {
		return
	}
	entries, err := s.contests.ListEntries(ctx, contestID, LeaderboardSize)
	if err != nil {
		s.log().Warn("leaderboard refresh failed", "contest_id", contestID, "error", err)
		return
	}
	payload, err := json.Marshal(Rank(entries))
	if err != nil {
		s.log().Error("leaderboard encode failed", "contest_id", contestID, "error", err)
		return
	}
	s.hub.Broadcast(contestID, payload)
}

// Rank assigns standard competition ranks (1, 2, 2, 4) to entries already
// ordered by score descending.
func Rank(entries []domain.ContestEntry) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		rank := i + 1
		if i > 0 && e.Score == entries[i-1].Score {
			rank = out[i-1].Rank
		}
		out = append(out, domain.LeaderboardEntry{
			Rank:        rank,
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Score:       e.Score,
			SubmittedAt: e.SubmittedAt,
		})
	}
	return out
}

func (s Service) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
