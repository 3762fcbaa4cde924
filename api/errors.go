package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hugr-lab/optimade-go/auth"
	"github.com/hugr-lab/optimade-go/collection"
	"github.com/hugr-lab/optimade-go/filter"
	"github.com/hugr-lab/optimade-go/predicate"
)

// retryAfter is the Retry-After value sent with store timeouts, in seconds.
const retryAfter = "5"

// NotFoundError is returned for unknown entry endpoints.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Path)
}

// StatusFor maps an error to the HTTP status of its response.
func StatusFor(err error) int {
	var (
		syntaxErr      *filter.SyntaxError
		translationErr *predicate.TranslationError
		unresolvedErr  *predicate.UnresolvedPropertyError
		unsupportedErr *predicate.UnsupportedError
		limitErr       *collection.PaginationLimitError
		formatErr      *collection.ResponseFormatError
		paramErr       *collection.ParameterError
		multipleErr    *collection.MultipleEntriesError
		storeErr       *collection.StoreError
		notFoundErr    *NotFoundError
	)

	switch {
	case errors.As(err, &syntaxErr),
		errors.As(err, &translationErr),
		errors.As(err, &unresolvedErr),
		errors.As(err, &unsupportedErr),
		errors.As(err, &limitErr),
		errors.As(err, &formatErr),
		errors.As(err, &paramErr),
		errors.Is(err, filter.ErrUnknownGrammar):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrTokenIsEmpty),
		errors.Is(err, auth.ErrInvalidAuthHeader):
		return http.StatusUnauthorized
	case errors.As(err, &multipleErr):
		return http.StatusInternalServerError
	case errors.As(err, &storeErr) && (storeErr.Timeout() || storeErr.Unavailable()):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError writes the error envelope of err.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	var storeErr *collection.StoreError
	if errors.As(err, &storeErr) && storeErr.Timeout() {
		w.Header().Set("Retry-After", retryAfter)
	}

	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		var multipleErr *collection.MultipleEntriesError
		if !errors.As(err, &multipleErr) {
			detail = "internal server error"
		}
	}

	s.writeJSON(w, r, status, errorResponse{
		Errors: []errorObject{{
			Status: fmt.Sprint(status),
			Title:  http.StatusText(status),
			Detail: detail,
		}},
		Meta: s.meta(r, 0, 0, false),
	})
}
