package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nielpattin/quizzy-sub001/internal/service/identity"
)

const rateWindowDefault = time.Minute

// AuthRouter serves the standalone token verification endpoints.
type AuthRouter struct {
	mux     chi.Router
	logger  *slog.Logger
	limiter RateLimiter
	now     func() time.Time
}

// NewAuthRouter assembles the auth server routes. A nil limiter selects the
// in-memory one.
func NewAuthRouter(logger *slog.Logger, guard Guard, limiter RateLimiter, corsOrigins []string, ratePerMinute int) *AuthRouter {
	if limiter == nil {
		limiter = NewMemoryRateLimiter()
	}
	r := &AuthRouter{
		mux:     chi.NewRouter(),
		logger:  logger,
		limiter: limiter,
		now:     time.Now,
	}
	m := newMetrics("auth")

	r.mux.Use(middleware.RequestID, audit(logger, m), middleware.Recoverer, corsHandler(corsOrigins))
	r.mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.Group(func(g chi.Router) {
		g.Use(rateLimit(limiter, m, ratePerMinute, rateWindowDefault), guard.Middleware)
		g.Post("/api/auth/verify", r.handleVerify)
		g.Get("/api/data", r.handleData)
	})
	return r
}

// ServeHTTP delegates to the chi mux.
func (r *AuthRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *AuthRouter) Close() {
	r.limiter.Close()
}

func (r *AuthRouter) handleVerify(w http.ResponseWriter, req *http.Request) {
	id, ok := identity.FromContext(req.Context())
	if !ok {
		r.logger.Error("identity missing after guard", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uid": id.UID, "email": id.Email})
}

func (r *AuthRouter) handleData(w http.ResponseWriter, req *http.Request) {
	id, ok := identity.FromContext(req.Context())
	if !ok {
		r.logger.Error("identity missing after guard", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   fmt.Sprintf("Hello %s, this is protected data from the auth server", id.Email),
		"uid":       id.UID,
		"timestamp": r.now().UTC().Format(time.RFC3339),
	})
}
