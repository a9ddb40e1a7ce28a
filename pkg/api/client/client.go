package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides typed access to the Quizzy API and auth server for
// interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Default endpoints of a local deployment.
const (
	DefaultAPIURL  = "http://localhost:3000"
	DefaultAuthURL = "http://localhost:3001"
)

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = DefaultAPIURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// envelope is the success/data/error wrapper of /api feature routes.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func doEnvelope[T any](ctx context.Context, c *Client, method, path string, body any, token string) (T, error) {
	var env envelope[T]
	if err := c.do(ctx, method, path, body, token, &env); err != nil {
		var zero T
		return zero, err
	}
	if !env.Success {
		var zero T
		return zero, APIError{Status: http.StatusOK, Message: env.Error}
	}
	return env.Data, nil
}

// Verification is returned by the auth server for a valid token.
type Verification struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Verify asks the auth server to check token.
func (c *Client) Verify(ctx context.Context, token string) (Verification, error) {
	var resp Verification
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify", nil, token, &resp); err != nil {
		return Verification{}, err
	}
	return resp, nil
}

// ProtectedData is the auth server's sample protected payload.
type ProtectedData struct {
	Message   string `json:"message"`
	UID       string `json:"uid"`
	Timestamp string `json:"timestamp"`
}

// Data fetches the protected sample payload from the auth server.
func (c *Client) Data(ctx context.Context, token string) (ProtectedData, error) {
	var resp ProtectedData
	if err := c.do(ctx, http.MethodGet, "/api/data", nil, token, &resp); err != nil {
		return ProtectedData{}, err
	}
	return resp, nil
}

// User reflects API user payloads.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Me returns the caller as mirrored by the API.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	return doEnvelope[User](ctx, c, http.MethodGet, "/api/users/me", nil, token)
}

// Quiz describes a quiz.
type Quiz struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListQuizzes returns quizzes, optionally only those by creator ("me" for
// the caller).
func (c *Client) ListQuizzes(ctx context.Context, token, creator string, limit int) ([]Quiz, error) {
	q := url.Values{}
	if creator = strings.TrimSpace(creator); creator != "" {
		q.Set("creator", creator)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/quizzes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return doEnvelope[[]Quiz](ctx, c, http.MethodGet, path, nil, token)
}

// CreateQuizInput captures the payload for quiz creation.
type CreateQuizInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateQuiz registers a new quiz owned by the caller.
func (c *Client) CreateQuiz(ctx context.Context, token string, input CreateQuizInput) (Quiz, error) {
	return doEnvelope[Quiz](ctx, c, http.MethodPost, "/api/quizzes", input, token)
}

// SessionStats feeds the admin session cards.
type SessionStats struct {
	TotalSessions     int     `json:"totalSessions"`
	ActiveSessions    int     `json:"activeSessions"`
	CompletedSessions int     `json:"completedSessions"`
	TotalParticipants int     `json:"totalParticipants"`
	AvgDuration       float64 `json:"avgDuration"`
}

// SessionStats returns aggregate session figures. Admin only.
func (c *Client) SessionStats(ctx context.Context, token string) (SessionStats, error) {
	return doEnvelope[SessionStats](ctx, c, http.MethodGet, "/api/admin/sessions/stats", nil, token)
}
