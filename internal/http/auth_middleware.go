package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/nielpattin/quizzy-sub001/internal/service/identity"
)

// Messages returned by the bearer guard. Verifier causes are only logged.
const (
	msgMissingAuthHeader  = "Missing or invalid authorization header"
	msgInvalidTokenFormat = "Invalid token format"
	msgInvalidToken       = "Invalid token"
)

var (
	errMissingAuthHeader  = errors.New("missing or non-bearer authorization header")
	errInvalidTokenFormat = errors.New("empty bearer token")
)

// Guard authenticates requests with a Firebase ID token. Both servers use it.
type Guard struct {
	verifier identity.Verifier
	logger   *slog.Logger
}

// NewGuard returns a guard backed by verifier.
func NewGuard(verifier identity.Verifier, logger *slog.Logger) Guard {
	return Guard{verifier: verifier, logger: logger}
}

// Middleware rejects unauthenticated requests and stores the identity in
// the request context.
func (g Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token, err := bearerToken(authorizationHeader(req))
		if err != nil {
			msg := msgMissingAuthHeader
			if errors.Is(err, errInvalidTokenFormat) {
				msg = msgInvalidTokenFormat
			}
			writeError(w, http.StatusUnauthorized, msg)
			return
		}
		id, err := g.verifier.Verify(req.Context(), token)
		if err != nil {
			g.logger.Warn("token verification failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		ctx := identity.WithIdentity(req.Context(), id)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// authorizationHeader falls back to the access_token query parameter for
// websocket and event-stream requests, which browsers open without headers.
func authorizationHeader(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if header != "" || !isStreamRequest(req) {
		return header
	}
	if token := req.URL.Query().Get("access_token"); token != "" {
		return "Bearer " + token
	}
	return ""
}

func isStreamRequest(req *http.Request) bool {
	return websocket.IsWebSocketUpgrade(req) || strings.Contains(req.Header.Get("Accept"), "text/event-stream")
}

func bearerToken(header string) (string, error) {
	// Transports trim trailing spaces, so a bare "Bearer" is an empty token.
	if strings.TrimSpace(header) == "Bearer" {
		return "", errInvalidTokenFormat
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errMissingAuthHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errInvalidTokenFormat
	}
	return token, nil
}
