package httpapp

import (
	"errors"
	"net/http"

	"github.com/alphabot-ai/microblog/internal/service"
)

// statusFor maps an error kind to its response code. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadJSON), errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError hides internal error text from clients and logs it with
// its stack.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		requestLog(r, s.log).WithError(err).Errorf("internal error: %+v", err)
		writeError(w, status, errors.New("internal server error"))
		return
	}
	writeError(w, status, err)
}
