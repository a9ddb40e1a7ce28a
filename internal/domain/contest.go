package domain

import "time"

// Contest statuses, derived from the schedule.
const (
	ContestStatusUpcoming = "upcoming"
	ContestStatusLive     = "live"
	ContestStatusEnded    = "ended"
)

// Contest is a scheduled, scored run of a quiz.
type Contest struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	QuizID    string    `json:"quizId"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	Status    string    `json:"status"`
}

// StatusAt derives the contest status at the given instant.
func (c Contest) StatusAt(now time.Time) string {
	switch {
	case now.Before(c.StartsAt):
		return ContestStatusUpcoming
	case now.Before(c.EndsAt):
		return ContestStatusLive
	default:
		return ContestStatusEnded
	}
}

// ContestInput is the payload accepted when scheduling a contest.
type ContestInput struct {
	Title    string    `json:"title" validate:"required,notblank,max=200"`
	QuizID   string    `json:"quizId" validate:"required,uuid"`
	StartsAt time.Time `json:"startsAt" validate:"required"`
	EndsAt   time.Time `json:"endsAt" validate:"required,gtfield=StartsAt"`
}

// ContestEntry is a user's best score in a contest.
type ContestEntry struct {
	ContestID   string    `json:"contestId"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// LeaderboardEntry is a ranked contest entry.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ScoreInput is the payload of a score submission.
type ScoreInput struct {
	Score *int `json:"score" validate:"required,gte=0,lte=1000000"`
}
