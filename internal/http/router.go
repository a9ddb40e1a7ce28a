package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nielpattin/quizzy-sub001/internal/openapi"
	"github.com/nielpattin/quizzy-sub001/internal/service/contest"
	"github.com/nielpattin/quizzy-sub001/internal/service/quiz"
	"github.com/nielpattin/quizzy-sub001/internal/service/session"
	"github.com/nielpattin/quizzy-sub001/internal/service/stats"
	"github.com/nielpattin/quizzy-sub001/internal/service/user"
)

const healthCheckTimeout = 2 * time.Second

// Options tunes the API router.
type Options struct {
	Version            string
	CORSOrigins        []string
	DefaultPageSize    int
	MaxPageSize        int
	RateLimitPerMinute int
	Limiter            RateLimiter
	DBHealth           func(context.Context) error
}

// Router wires the REST API to services.
type Router struct {
	mux      chi.Router
	logger   *slog.Logger
	guard    Guard
	users    user.Service
	quizzes  quiz.Service
	sessions session.Service
	contests contest.Service
	stats    stats.Service
	upgrader websocket.Upgrader
	limiter  RateLimiter
	metrics  *metrics
	opts     Options
	routes   []route
	doc      []byte
	now      func() time.Time
}

// route is one feature endpoint below /api. The same table drives chi
// registration and the OpenAPI document.
type route struct {
	method   string
	pattern  string
	summary  string
	tag      string
	admin    bool
	query    []openapi.Param
	request  any
	response any
	handler  http.HandlerFunc
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, guard Guard, users user.Service, quizzes quiz.Service, sessions session.Service, contests contest.Service, statsSvc stats.Service, opts Options) *Router {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.Limiter == nil {
		opts.Limiter = NewMemoryRateLimiter()
	}
	r := &Router{
		mux:      chi.NewRouter(),
		logger:   logger,
		guard:    guard,
		users:    users,
		quizzes:  quizzes,
		sessions: sessions,
		contests: contests,
		stats:    statsSvc,
		limiter:  opts.Limiter,
		metrics:  newMetrics("api"),
		opts:     opts,
		now:      time.Now,
	}
	r.upgrader = websocket.Upgrader{CheckOrigin: r.checkOrigin}
	for _, group := range [][]route{
		r.testRoutes(),
		r.userRoutes(),
		r.quizRoutes(),
		r.sessionRoutes(),
		r.contestRoutes(),
		r.adminRoutes(),
	} {
		r.routes = append(r.routes, group...)
	}
	r.register()
	return r
}

// ServeHTTP delegates to the chi mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.Use(middleware.RequestID, audit(r.logger, r.metrics), middleware.Recoverer, corsHandler(r.opts.CORSOrigins))
	r.mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusNotFound, "Not found")
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.mux.Get("/", r.handleRoot)
	r.mux.Get("/doc", r.handleDoc)
	r.mux.Get("/scalar", r.handleScalar)
	r.mux.Get("/healthz", r.handleHealthz)
	r.mux.Handle("/metrics", promhttp.Handler())

	r.mux.Route("/api", func(api chi.Router) {
		api.Use(rateLimit(r.limiter, r.metrics, r.opts.RateLimitPerMinute, rateWindowDefault), r.guard.Middleware, r.ensureUser)
		for _, rt := range r.routes {
			handler := rt.handler
			if rt.admin {
				handler = r.requireAdmin(handler)
			}
			api.Method(rt.method, rt.pattern, handler)
		}
	})

	doc, err := r.openAPI()
	if err != nil {
		r.logger.Error("openapi document build failed", "error", err)
		return
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		r.logger.Error("openapi document encode failed", "error", err)
		return
	}
	r.doc = payload
}

func (r *Router) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Quizzy API",
		"version": r.opts.Version,
	})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.opts.DBHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.opts.DBHealth(ctx); err != nil {
			status = "degraded"
			r.logger.Warn("database health check failed", "error", err)
			components["database"] = map[string]any{"status": "down"}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  r.now().UTC().Format(time.RFC3339Nano),
	})
}

func (r *Router) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range r.opts.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (r *Router) page(req *http.Request) (int, int) {
	return pageParams(req, r.opts.DefaultPageSize, r.opts.MaxPageSize)
}
