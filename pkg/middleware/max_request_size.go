package middleware

import (
	"net/http"

	apperrors "hotelbook/pkg/errors"
	httputil "hotelbook/pkg/http"
)

// MaxRequestSize caps request bodies at limit bytes. Declared oversize bodies are
// rejected up front; undeclared ones fail when the handler reads past the limit.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				_ = httputil.WriteError(w, apperrors.TooLarge(limit))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
