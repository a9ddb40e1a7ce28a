package httpx

import (
	"context"
	"net/http"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/service/identity"
)

type userContextKey struct{}

// ensureUser mirrors the verified identity into the users table and keeps
// the stored row, role included, on the request context.
func (r *Router) ensureUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, ok := identity.FromContext(req.Context())
		if !ok {
			r.logger.Error("identity missing after guard", "path", req.URL.Path)
			writeFail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		u, err := r.users.EnsureUser(req.Context(), id)
		if err != nil {
			writeServiceError(w, req, r.logger, err)
			return
		}
		ctx := context.WithValue(req.Context(), userContextKey{}, *u)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func (r *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		u, ok := currentUser(req.Context())
		if !ok || !u.IsAdmin() {
			writeFail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, req)
	}
}

func currentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(domain.User)
	return u, ok
}
