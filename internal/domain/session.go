package domain

import "time"

// Session statuses.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

// Session is one live run of a quiz hosted by a user.
type Session struct {
	ID               string     `json:"id"`
	QuizID           string     `json:"quizId"`
	HostID           string     `json:"hostId"`
	Status           string     `json:"status"`
	ParticipantCount int        `json:"participantCount"`
	StartedAt        time.Time  `json:"startedAt"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
}

// SessionStats feeds the session manager cards.
type SessionStats struct {
	TotalSessions     int     `json:"totalSessions"`
	ActiveSessions    int     `json:"activeSessions"`
	CompletedSessions int     `json:"completedSessions"`
	TotalParticipants int     `json:"totalParticipants"`
	AvgDuration       float64 `json:"avgDuration"`
}
