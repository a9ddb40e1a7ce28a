package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
	"github.com/nielpattin/quizzy-sub001/internal/validate"
)

// writeServiceError maps service errors onto the failure envelope. Causes of
// 500s are logged and never sent to the client.
func writeServiceError(w http.ResponseWriter, req *http.Request, logger *slog.Logger, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationEnvelope{Success: false, Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, errInvalidJSON), errors.Is(err, domain.ErrInvalidInput):
		writeFail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeFail(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, repository.ErrNotFound):
		writeFail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrConflict):
		writeFail(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err, "method", req.Method, "path", req.URL.Path)
		writeFail(w, http.StatusInternalServerError, "Internal server error")
	}
}

type validationEnvelope struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error"`
	Fields  []validate.FieldError `json:"fields"`
}
