package domain

import "time"

// DashboardCounts are the raw totals behind the dashboard cards.
type DashboardCounts struct {
	TotalUsers        int
	Members           int
	Employees         int
	Admins            int
	TotalQuizzes      int
	TotalContests     int
	LiveContests      int
	TotalSessions     int
	CompletedSessions int
	TotalParticipants int
}

// RoleDistribution splits the user base into members and employees.
type RoleDistribution struct {
	Total               int     `json:"total"`
	Members             int     `json:"members"`
	Employees           int     `json:"employees"`
	MembersPercentage   float64 `json:"membersPercentage"`
	EmployeesPercentage float64 `json:"employeesPercentage"`
}

// Engagement summarises how sessions are used.
type Engagement struct {
	CompletionRate            float64 `json:"completionRate"`
	AvgParticipantsPerSession float64 `json:"avgParticipantsPerSession"`
}

// DashboardStats is the payload of the admin overview.
type DashboardStats struct {
	TotalUsers    int              `json:"totalUsers"`
	TotalQuizzes  int              `json:"totalQuizzes"`
	TotalContests int              `json:"totalContests"`
	LiveContests  int              `json:"liveContests"`
	Roles         RoleDistribution `json:"roles"`
	Engagement    Engagement       `json:"engagement"`
	GeneratedAt   time.Time        `json:"generatedAt"`
}

// Activity kinds.
const (
	ActivityQuizCreated    = "quiz_created"
	ActivitySessionStarted = "session_started"
	ActivityScoreSubmitted = "score_submitted"
)

// ActivityEntry is one line of the activity feed.
type ActivityEntry struct {
	Type       string    `json:"type"`
	ActorID    string    `json:"actorId"`
	ActorName  string    `json:"actorName"`
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Performer is a top scorer across all contests.
type Performer struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TotalScore  int    `json:"totalScore"`
	Contests    int    `json:"contests"`
}
