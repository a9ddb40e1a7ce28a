package httpx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/service/contest"
	"github.com/nielpattin/quizzy-sub001/internal/service/identity"
	"github.com/nielpattin/quizzy-sub001/internal/service/quiz"
	"github.com/nielpattin/quizzy-sub001/internal/service/session"
	"github.com/nielpattin/quizzy-sub001/internal/service/stats"
	"github.com/nielpattin/quizzy-sub001/internal/service/user"
	"github.com/nielpattin/quizzy-sub001/internal/ws"
)

const (
	memberToken = "member-token"
	otherToken  = "other-token"
	adminToken  = "admin-token"
)

type stubVerifier map[string]identity.Identity

func (s stubVerifier) Verify(_ context.Context, token string) (identity.Identity, error) {
	id, ok := s[token]
	if !ok {
		return identity.Identity{}, errors.New("unknown token")
	}
	return id, nil
}

type apiFixture struct {
	router *Router
	store  *memoryStore
	hub    *ws.Hub
}

func setupRouter(t *testing.T) apiFixture {
	t.Helper()
	store := newMemoryStore()
	store.users["admin-1"] = domain.User{ID: "admin-1", Email: "admin@example.com", DisplayName: "Ada", Role: domain.RoleAdmin}
	verifier := stubVerifier{
		memberToken: {UID: "user-1", Email: "one@example.com", Name: "One"},
		otherToken:  {UID: "user-2", Email: "two@example.com", Name: "Two"},
		adminToken:  {UID: "admin-1", Email: "admin@example.com", Name: "Ada"},
	}
	hub := ws.NewHub()
	logger := discardLogger()
	router := NewRouter(
		logger,
		NewGuard(verifier, logger),
		user.New(store, logger),
		quiz.New(store, logger),
		session.New(store, store, logger),
		contest.New(store, store, hub, logger),
		stats.New(store, store, stats.NewMemoryCache(), stats.DefaultStaleTime, logger),
		Options{Version: "1.0.0", CORSOrigins: []string{"http://localhost:5173"}},
	)
	t.Cleanup(func() {
		router.Close()
		hub.Close()
	})
	return apiFixture{router: router, store: store, hub: hub}
}

func (f apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope[T any](t *testing.T, rr *httptest.ResponseRecorder) domain.APIResponse[T] {
	t.Helper()
	var env domain.APIResponse[T]
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rr.Body.String(), err)
	}
	return env
}

func TestRootReportsVersion(t *testing.T) {
	f := setupRouter(t)
	rr := f.do(t, http.MethodGet, "/", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "Quizzy API" || body["version"] != "1.0.0" {
		t.Fatalf("unexpected root body: %v", body)
	}
}

func TestDocumentationRoutes(t *testing.T) {
	f := setupRouter(t)

	rr := f.do(t, http.MethodGet, "/doc", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /doc, got %d", rr.Code)
	}
	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode doc: %v", err)
	}
	if doc.OpenAPI != "3.1.0" {
		t.Fatalf("expected openapi 3.1.0, got %q", doc.OpenAPI)
	}
	for _, path := range []string{"/api/quizzes", "/api/quizzes/{id}", "/api/admin/dashboard/stats", "/api/contests/{id}/scores"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Fatalf("expected %s in document", path)
		}
	}
	if _, ok := doc.Paths["/api/quizzes"]["post"]; !ok {
		t.Fatalf("expected post operation on /api/quizzes")
	}

	rr = f.do(t, http.MethodGet, "/scalar", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /scalar, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `data-url="/doc"`) {
		t.Fatalf("expected scalar page to load /doc")
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	f := setupRouter(t)
	rr := f.do(t, http.MethodGet, "/api/quizzes", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != msgMissingAuthHeader {
		t.Fatalf("unexpected error body: %v", body)
	}

	rr = f.do(t, http.MethodGet, "/api/quizzes", "forged", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rr.Code)
	}
}

func TestDiagnosticMirrorsCaller(t *testing.T) {
	f := setupRouter(t)
	rr := f.do(t, http.MethodGet, "/api/test", memberToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope[diagnostic](t, rr)
	if !env.Success || env.Data.UID != "user-1" || env.Data.Role != domain.RoleMember {
		t.Fatalf("unexpected diagnostic: %+v", env)
	}
	if _, ok := f.store.users["user-1"]; !ok {
		t.Fatalf("expected caller to be mirrored into users")
	}
}

func TestQuizLifecycle(t *testing.T) {
	f := setupRouter(t)

	rr := f.do(t, http.MethodPost, "/api/quizzes", memberToken, domain.QuizInput{Title: "  Go basics ", Description: "intro"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeEnvelope[domain.Quiz](t, rr)
	if created.Data.Title != "Go basics" || created.Data.CreatorID != "user-1" || created.Data.ID == "" {
		t.Fatalf("unexpected quiz: %+v", created.Data)
	}

	rr = f.do(t, http.MethodGet, "/api/quizzes/"+created.Data.ID, otherToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPut, "/api/quizzes/"+created.Data.ID, otherToken, domain.QuizInput{Title: "Hijacked"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner update, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPut, "/api/quizzes/"+created.Data.ID, memberToken, domain.QuizInput{Title: "Go fundamentals"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on owner update, got %d: %s", rr.Code, rr.Body.String())
	}
	if updated := decodeEnvelope[domain.Quiz](t, rr); updated.Data.Title != "Go fundamentals" {
		t.Fatalf("expected updated title, got %q", updated.Data.Title)
	}

	rr = f.do(t, http.MethodGet, "/api/quizzes?creator=me", otherToken, nil)
	if list := decodeEnvelope[[]domain.Quiz](t, rr); len(list.Data) != 0 {
		t.Fatalf("expected no quizzes for other creator, got %d", len(list.Data))
	}

	rr = f.do(t, http.MethodDelete, "/api/quizzes/"+created.Data.ID, adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected admin delete to succeed, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/api/quizzes/"+created.Data.ID, memberToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
	if env := decodeEnvelope[any](t, rr); env.Success || env.Error != "Not found" {
		t.Fatalf("unexpected not found envelope: %+v", env)
	}
}

func TestQuizValidationErrors(t *testing.T) {
	f := setupRouter(t)

	rr := f.do(t, http.MethodPost, "/api/quizzes", memberToken, domain.QuizInput{Title: "   "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Fatalf("expected failed envelope: %v", body)
	}
	if !strings.Contains(body["error"].(string), "title is required") {
		t.Fatalf("expected title message, got %v", body["error"])
	}

	req := httptest.NewRequest(http.MethodPost, "/api/quizzes", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+memberToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := setupRouter(t)

	rr := f.do(t, http.MethodGet, "/api/admin/dashboard/stats", memberToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", rr.Code)
	}
	if env := decodeEnvelope[any](t, rr); env.Error != "Admin access required" {
		t.Fatalf("unexpected forbidden message: %q", env.Error)
	}

	rr = f.do(t, http.MethodGet, "/api/users", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rr.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	f := setupRouter(t)
	f.store.users["emp-1"] = domain.User{ID: "emp-1", Role: domain.RoleEmployee}
	// the member is mirrored on first request
	f.do(t, http.MethodGet, "/api/test", memberToken, nil)

	rr := f.do(t, http.MethodGet, "/api/admin/dashboard/stats", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope[domain.DashboardStats](t, rr)
	if env.Data.TotalUsers != 3 {
		t.Fatalf("expected 3 users, got %d", env.Data.TotalUsers)
	}
	if env.Data.Roles.Members != 1 || env.Data.Roles.Employees != 1 {
		t.Fatalf("unexpected roles: %+v", env.Data.Roles)
	}
	if env.Data.Roles.MembersPercentage != 33.3 {
		t.Fatalf("expected 33.3%% members, got %v", env.Data.Roles.MembersPercentage)
	}
}

func TestPageSizeIsClamped(t *testing.T) {
	f := setupRouter(t)
	rr := f.do(t, http.MethodGet, "/api/quizzes?limit=500", memberToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if f.store.lastLimit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", f.store.lastLimit)
	}

	f.do(t, http.MethodGet, "/api/quizzes?limit=abc", memberToken, nil)
	if f.store.lastLimit != 20 {
		t.Fatalf("expected default limit 20, got %d", f.store.lastLimit)
	}
}

func TestSessionFlow(t *testing.T) {
	f := setupRouter(t)
	rr := f.do(t, http.MethodPost, "/api/quizzes", memberToken, domain.QuizInput{Title: "Live"})
	q := decodeEnvelope[domain.Quiz](t, rr).Data

	rr = f.do(t, http.MethodPost, "/api/sessions", memberToken, map[string]string{"quizId": q.ID})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	s := decodeEnvelope[domain.Session](t, rr).Data

	rr = f.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/join", otherToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on join, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/end", otherToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when a participant ends, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/end", memberToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on end, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/end", memberToken, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second end, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/api/admin/sessions?status=bogus", adminToken, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	f := setupRouter(t)
	rr := f.do(t, http.MethodGet, "/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if env := decodeEnvelope[any](t, rr); env.Success || env.Error != "Not found" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestLeaderboardWebsocketReceivesScores(t *testing.T) {
	f := setupRouter(t)
	now := time.Now().UTC()
	f.store.contests["c-1"] = domain.Contest{
		ID:       "c-1",
		Title:    "Friday",
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/contests/c-1/leaderboard/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+memberToken)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot []domain.LeaderboardEntry
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
	if n := f.hub.Subscribers("c-1"); n != 1 {
		t.Fatalf("expected subscriber registered before snapshot, got %d", n)
	}

	rr := f.do(t, http.MethodPost, "/api/contests/c-1/scores", otherToken, map[string]int{"score": 42})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var board []domain.LeaderboardEntry
	if err := conn.ReadJSON(&board); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(board) != 1 || board[0].UserID != "user-2" || board[0].Score != 42 || board[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard: %+v", board)
	}
}

func TestSubmitScoreOutsideWindow(t *testing.T) {
	f := setupRouter(t)
	now := time.Now().UTC()
	f.store.contests["c-ended"] = domain.Contest{ID: "c-ended", StartsAt: now.Add(-2 * time.Hour), EndsAt: now.Add(-time.Hour)}

	rr := f.do(t, http.MethodPost, "/api/contests/c-ended/scores", memberToken, map[string]int{"score": 10})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/contests/missing/scores", memberToken, map[string]int{"score": 10})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func seedLiveContest(f apiFixture, id string) {
	now := time.Now().UTC()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.contests[id] = domain.Contest{ID: id, Title: "Live", StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
}

func waitForSubscribers(t *testing.T, hub *ws.Hub, contestID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(contestID) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered for %s", contestID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// openStream requests the SSE leaderboard the way a browser EventSource
// does: no Authorization header, token in the query.
func openStream(t *testing.T, baseURL, contestID, token string) (*http.Response, *bufio.Reader) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/contests/"+contestID+"/leaderboard/stream?access_token="+token, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp, bufio.NewReader(resp.Body)
}

// readEvent returns the event name and data of the next SSE frame,
// skipping heartbeat comments.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestLeaderboardStreamPushesScores(t *testing.T) {
	f := setupRouter(t)
	seedLiveContest(f, "c-1")
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	resp, reader := openStream(t, srv.URL, "c-1", memberToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	event, data := readEvent(t, reader)
	if event != "leaderboard" || data != "[]" {
		t.Fatalf("unexpected first frame %q %q", event, data)
	}
	// The stream registers before it sends the snapshot.
	if n := f.hub.Subscribers("c-1"); n != 1 {
		t.Fatalf("expected subscriber registered before snapshot, got %d", n)
	}

	rr := f.do(t, http.MethodPost, "/api/contests/c-1/scores", otherToken, map[string]int{"score": 7})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	event, data = readEvent(t, reader)
	if event != "leaderboard" {
		t.Fatalf("unexpected event %q", event)
	}
	var board []domain.LeaderboardEntry
	if err := json.Unmarshal([]byte(data), &board); err != nil {
		t.Fatalf("decode update %q: %v", data, err)
	}
	if len(board) != 1 || board[0].UserID != "user-2" || board[0].Score != 7 {
		t.Fatalf("unexpected leaderboard: %+v", board)
	}
}

func TestLeaderboardStreamUnknownContest(t *testing.T) {
	f := setupRouter(t)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	resp, _ := openStream(t, srv.URL, "missing", memberToken)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestQueryTokenOnlyAcceptedOnStreams(t *testing.T) {
	f := setupRouter(t)
	seedLiveContest(f, "c-1")
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/contests/c-1/leaderboard/ws?access_token=" + memberToken
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial with query token: %v", err)
	}
	_ = conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	_, resp, err = websocket.DefaultDialer.Dial(strings.Replace(wsURL, memberToken, "forged", 1), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged query token, got %v", err)
	}

	rr := f.do(t, http.MethodGet, "/api/quizzes?access_token="+memberToken, "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token on a plain route, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != msgMissingAuthHeader {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestShutdownEndsOpenStreams(t *testing.T) {
	f := setupRouter(t)
	seedLiveContest(f, "c-1")
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)
	srv.Config.RegisterOnShutdown(f.hub.Close)

	_, reader := openStream(t, srv.URL, "c-1", memberToken)
	if event, _ := readEvent(t, reader); event != "leaderboard" {
		t.Fatalf("unexpected first event %q", event)
	}
	waitForSubscribers(t, f.hub, "c-1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	started := time.Now()
	if err := srv.Config.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown with an open stream: %v after %s", err, time.Since(started))
	}
}
