package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nielpattin/quizzy-sub001/internal/service/identity"
)

type contextSetter interface {
	SetContext(context.Context)
}

// audit logs one line per request and feeds the request metrics.
func audit(logger *slog.Logger, m *metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(recorder, req)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}
			ctx := recorder.ctx
			if ctx == nil {
				ctx = req.Context()
			}
			duration := time.Since(start)
			fields := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"bytes", recorder.bytes,
				"duration_ms", duration.Milliseconds(),
			}
			if ip := clientIP(req); ip != "" {
				fields = append(fields, "ip", ip)
			}
			if reqID := middleware.GetReqID(req.Context()); reqID != "" {
				fields = append(fields, "request_id", reqID)
			}
			if id, ok := identity.FromContext(ctx); ok {
				fields = append(fields, "uid", id.UID)
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("http_request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("http_request", fields...)
			default:
				logger.Info("http_request", fields...)
			}
			m.recordRequest(req.Method, routePattern(req), status, duration)
		})
	}
}

func routePattern(req *http.Request) string {
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
