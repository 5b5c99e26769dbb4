package middleware

import (
	"encoding/json"
	"net/http"

	"mapquester/utils/errors"
	"mapquester/utils/logger"
)

// ErrorMiddleware echoes the client's X-Request-ID and turns handler panics
// into ErrInternal responses.
func ErrorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Panic recovered on %s %s (request %s): %v", r.Method, r.URL.Path, requestID, rec)
					WriteError(w, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as a JSON APIError response
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		apiErr = errors.Wrap(err, "UNKNOWN_ERROR", "Unexpected error", errors.ErrInternal.Status)
	}
	if apiErr.Status >= 500 {
		logger.Error("Server error %s", apiErr.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(apiErr)
}
