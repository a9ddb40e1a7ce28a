package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	jwtpkg "github.com/nielpattin/quizzy-sub001/pkg/jwt"
)

// ErrProjectIDMissing is returned when no Firebase project can be resolved.
var ErrProjectIDMissing = errors.New("firebase project id not configured")

// Identity is the verified caller behind an ID token.
type Identity struct {
	UID    string
	Email  string
	Name   string
	Claims *jwtpkg.Claims
}

// Verifier checks ID tokens.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

type contextKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// ResolveProjectID prefers an explicit project id and falls back to the
// project_id field of the service-account file.
func ResolveProjectID(projectID, serviceAccountPath string) (string, error) {
	if projectID = strings.TrimSpace(projectID); projectID != "" {
		return projectID, nil
	}
	if strings.TrimSpace(serviceAccountPath) == "" {
		return "", ErrProjectIDMissing
	}
	return ProjectIDFromServiceAccount(serviceAccountPath)
}

// ProjectIDFromServiceAccount reads project_id from a service-account JSON file.
func ProjectIDFromServiceAccount(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read service account: %w", err)
	}
	var account struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &account); err != nil {
		return "", fmt.Errorf("decode service account: %w", err)
	}
	if strings.TrimSpace(account.ProjectID) == "" {
		return "", ErrProjectIDMissing
	}
	return account.ProjectID, nil
}
