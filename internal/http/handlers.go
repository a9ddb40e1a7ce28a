package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/openapi"
	"github.com/nielpattin/quizzy-sub001/internal/ws"
)

const sseHeartbeatInterval = 15 * time.Second

type startSessionRequest struct {
	QuizID string `json:"quizId" validate:"required"`
}

type diagnostic struct {
	Message   string `json:"message"`
	UID       string `json:"uid"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

func (r *Router) testRoutes() []route {
	return []route{
		{method: http.MethodGet, pattern: "/test", summary: "Authenticated diagnostic", tag: "test", response: diagnostic{}, handler: r.handleTest},
	}
}

func (r *Router) userRoutes() []route {
	return []route{
		{method: http.MethodGet, pattern: "/users/me", summary: "Current user", tag: "user", response: domain.User{}, handler: r.handleMe},
		{method: http.MethodGet, pattern: "/users", summary: "List users", tag: "user", admin: true, query: pageQuery, response: []domain.User{}, handler: r.handleListUsers},
		{method: http.MethodGet, pattern: "/users/{id}", summary: "Get user", tag: "user", admin: true, response: domain.User{}, handler: r.handleGetUser},
	}
}

func (r *Router) quizRoutes() []route {
	listQuery := append([]openapi.Param{{Name: "creator", Description: "Only quizzes by this user; \"me\" for the caller"}}, pageQuery...)
	return []route{
		{method: http.MethodGet, pattern: "/quizzes", summary: "List quizzes", tag: "quiz", query: listQuery, response: []domain.Quiz{}, handler: r.handleListQuizzes},
		{method: http.MethodPost, pattern: "/quizzes", summary: "Create quiz", tag: "quiz", request: domain.QuizInput{}, response: domain.Quiz{}, handler: r.handleCreateQuiz},
		{method: http.MethodGet, pattern: "/quizzes/{id}", summary: "Get quiz", tag: "quiz", response: domain.Quiz{}, handler: r.handleGetQuiz},
		{method: http.MethodPut, pattern: "/quizzes/{id}", summary: "Update quiz", tag: "quiz", request: domain.QuizInput{}, response: domain.Quiz{}, handler: r.handleUpdateQuiz},
		{method: http.MethodDelete, pattern: "/quizzes/{id}", summary: "Delete quiz", tag: "quiz", response: map[string]string{}, handler: r.handleDeleteQuiz},
	}
}

func (r *Router) sessionRoutes() []route {
	return []route{
		{method: http.MethodPost, pattern: "/sessions", summary: "Start a session", tag: "session", request: startSessionRequest{}, response: domain.Session{}, handler: r.handleStartSession},
		{method: http.MethodPost, pattern: "/sessions/{id}/join", summary: "Join a session", tag: "session", response: domain.Session{}, handler: r.handleJoinSession},
		{method: http.MethodPost, pattern: "/sessions/{id}/end", summary: "End a session", tag: "session", response: domain.Session{}, handler: r.handleEndSession},
	}
}

func (r *Router) contestRoutes() []route {
	return []route{
		{method: http.MethodGet, pattern: "/contests", summary: "List contests", tag: "contest", query: pageQuery[:1], response: []domain.Contest{}, handler: r.handleListContests},
		{method: http.MethodGet, pattern: "/contests/{id}/leaderboard", summary: "Contest leaderboard", tag: "contest", query: pageQuery[:1], response: []domain.LeaderboardEntry{}, handler: r.handleLeaderboard},
		{method: http.MethodPost, pattern: "/contests/{id}/scores", summary: "Submit a score", tag: "contest", request: domain.ScoreInput{}, response: domain.ContestEntry{}, handler: r.handleSubmitScore},
		{method: http.MethodGet, pattern: "/contests/{id}/leaderboard/ws", summary: "Leaderboard websocket", tag: "contest", handler: r.handleLeaderboardWS},
		{method: http.MethodGet, pattern: "/contests/{id}/leaderboard/stream", summary: "Leaderboard event stream", tag: "contest", handler: r.handleLeaderboardSSE},
	}
}

func (r *Router) adminRoutes() []route {
	statusQuery := []openapi.Param{{Name: "status", Description: "active or completed"}, pageQuery[0]}
	return []route{
		{method: http.MethodGet, pattern: "/admin/sessions", summary: "List sessions", tag: "admin", admin: true, query: statusQuery, response: []domain.Session{}, handler: r.handleListSessions},
		{method: http.MethodGet, pattern: "/admin/sessions/stats", summary: "Session statistics", tag: "admin", admin: true, response: domain.SessionStats{}, handler: r.handleSessionStats},
		{method: http.MethodPost, pattern: "/admin/contests", summary: "Schedule a contest", tag: "admin", admin: true, request: domain.ContestInput{}, response: domain.Contest{}, handler: r.handleCreateContest},
		{method: http.MethodGet, pattern: "/admin/dashboard/stats", summary: "Dashboard overview", tag: "admin", admin: true, response: domain.DashboardStats{}, handler: r.handleDashboardStats},
		{method: http.MethodGet, pattern: "/admin/dashboard/activity", summary: "Recent activity", tag: "admin", admin: true, query: pageQuery[:1], response: []domain.ActivityEntry{}, handler: r.handleActivity},
		{method: http.MethodGet, pattern: "/admin/dashboard/performers", summary: "Top performers", tag: "admin", admin: true, query: pageQuery[:1], response: []domain.Performer{}, handler: r.handlePerformers},
	}
}

func (r *Router) handleTest(w http.ResponseWriter, req *http.Request) {
	u, _ := currentUser(req.Context())
	writeOK(w, http.StatusOK, diagnostic{
		Message:   "Quizzy API is reachable",
		UID:       u.ID,
		Role:      u.Role,
		Timestamp: r.now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	u, _ := currentUser(req.Context())
	writeOK(w, http.StatusOK, u)
}

func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) {
	limit, offset := r.page(req)
	users, err := r.users.List(req.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, users)
}

func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request) {
	u, err := r.users.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, u)
}

func (r *Router) handleListQuizzes(w http.ResponseWriter, req *http.Request) {
	limit, offset := r.page(req)
	creator := strings.TrimSpace(req.URL.Query().Get("creator"))
	if creator == "me" {
		u, _ := currentUser(req.Context())
		creator = u.ID
	}
	quizzes, err := r.quizzes.List(req.Context(), creator, limit, offset)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, quizzes)
}

func (r *Router) handleCreateQuiz(w http.ResponseWriter, req *http.Request) {
	var input domain.QuizInput
	if err := decodeJSON(w, req, &input); err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	u, _ := currentUser(req.Context())
	q, err := r.quizzes.Create(req.Context(), u, input)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusCreated, q)
}

func (r *Router) handleGetQuiz(w http.ResponseWriter, req *http.Request) {
	q, err := r.quizzes.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, q)
}

func (r *Router) handleUpdateQuiz(w http.ResponseWriter, req *http.Request) {
	var input domain.QuizInput
	if err := decodeJSON(w, req, &input); err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	u, _ := currentUser(req.Context())
	q, err := r.quizzes.Update(req.Context(), u, chi.URLParam(req, "id"), input)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, q)
}

func (r *Router) handleDeleteQuiz(w http.ResponseWriter, req *http.Request) {
	u, _ := currentUser(req.Context())
	id := chi.URLParam(req, "id")
	if err := r.quizzes.Delete(req.Context(), u, id); err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]string{"id": id})
}

func (r *Router) handleStartSession(w http.ResponseWriter, req *http.Request) {
	var payload startSessionRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	u, _ := currentUser(req.Context())
	s, err := r.sessions.Start(req.Context(), u, payload.QuizID)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusCreated, s)
}

func (r *Router) handleJoinSession(w http.ResponseWriter, req *http.Request) {
	u, _ := currentUser(req.Context())
	s, err := r.sessions.Join(req.Context(), u, chi.URLParam(req, "id"))
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, s)
}

func (r *Router) handleEndSession(w http.ResponseWriter, req *http.Request) {
	u, _ := currentUser(req.Context())
	s, err := r.sessions.End(req.Context(), u, chi.URLParam(req, "id"))
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	r.stats.Invalidate(req.Context())
	writeOK(w, http.StatusOK, s)
}

func (r *Router) handleListContests(w http.ResponseWriter, req *http.Request) {
	limit, _ := r.page(req)
	contests, err := r.contests.List(req.Context(), limit)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, contests)
}

func (r *Router) handleLeaderboard(w http.ResponseWriter, req *http.Request) {
	limit, _ := r.page(req)
	board, err := r.contests.Leaderboard(req.Context(), chi.URLParam(req, "id"), limit)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, board)
}

func (r *Router) handleSubmitScore(w http.ResponseWriter, req *http.Request) {
	var input domain.ScoreInput
	if err := decodeJSON(w, req, &input); err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	u, _ := currentUser(req.Context())
	entry, err := r.contests.SubmitScore(req.Context(), u, chi.URLParam(req, "id"), input)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusCreated, entry)
}

func (r *Router) handleLeaderboardWS(w http.ResponseWriter, req *http.Request) {
	contestID := chi.URLParam(req, "id")
	hub := r.contests.Hub()
	if hub == nil {
		writeFail(w, http.StatusServiceUnavailable, "Live leaderboard unavailable")
		return
	}
	if _, err := r.contests.Leaderboard(req.Context(), contestID, 1); err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err, "contest_id", contestID)
		return
	}
	client := ws.NewClient(conn, r.logger)
	if err := r.subscribe(req, hub, contestID, client); err != nil {
		client.Close()
		return
	}
	go func() {
		defer func() {
			hub.Unregister(contestID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleLeaderboardSSE(w http.ResponseWriter, req *http.Request) {
	contestID := chi.URLParam(req, "id")
	hub := r.contests.Hub()
	flusher, ok := w.(http.Flusher)
	if hub == nil || !ok {
		writeFail(w, http.StatusServiceUnavailable, "Live leaderboard unavailable")
		return
	}
	if _, err := r.contests.Leaderboard(req.Context(), contestID, 1); err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	if err := r.subscribe(req, hub, contestID, client); err != nil {
		return
	}
	defer hub.Unregister(contestID, client)

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			client.Close()
			return
		case <-hub.Done():
			return
		case <-ticker.C:
			if client.Closed() {
				return
			}
			if time.Since(client.LastActivity()) < sseHeartbeatInterval {
				continue
			}
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

// subscribe registers client before reading the snapshot, so a score
// accepted in between is still pushed.
func (r *Router) subscribe(req *http.Request, hub *ws.Hub, contestID string, client ws.Subscriber) error {
	hub.Register(contestID, client)
	board, err := r.contests.Leaderboard(req.Context(), contestID, r.opts.MaxPageSize)
	if err == nil {
		err = client.Send(mustJSON(board))
	}
	if err != nil {
		r.logger.Warn("leaderboard snapshot failed", "contest_id", contestID, "error", err)
		hub.Unregister(contestID, client)
	}
	return err
}

func (r *Router) handleListSessions(w http.ResponseWriter, req *http.Request) {
	limit, _ := r.page(req)
	sessions, err := r.sessions.List(req.Context(), req.URL.Query().Get("status"), limit)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, sessions)
}

func (r *Router) handleSessionStats(w http.ResponseWriter, req *http.Request) {
	st, err := r.stats.SessionStats(req.Context())
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, st)
}

func (r *Router) handleCreateContest(w http.ResponseWriter, req *http.Request) {
	var input domain.ContestInput
	if err := decodeJSON(w, req, &input); err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	u, _ := currentUser(req.Context())
	c, err := r.contests.Create(req.Context(), u, input)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	r.stats.Invalidate(req.Context())
	writeOK(w, http.StatusCreated, c)
}

func (r *Router) handleDashboardStats(w http.ResponseWriter, req *http.Request) {
	st, err := r.stats.Dashboard(req.Context())
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, st)
}

func (r *Router) handleActivity(w http.ResponseWriter, req *http.Request) {
	limit, _ := r.page(req)
	entries, err := r.stats.Activity(req.Context(), limit)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, entries)
}

func (r *Router) handlePerformers(w http.ResponseWriter, req *http.Request) {
	limit, _ := r.page(req)
	performers, err := r.stats.Performers(req.Context(), limit)
	if err != nil {
		writeServiceError(w, req, r.logger, err)
		return
	}
	writeOK(w, http.StatusOK, performers)
}
