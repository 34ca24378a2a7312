package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the whole request, provider retries included, through the
// request context. The handler still writes the response after the deadline,
// so a commit with an unknown outcome is reported as such and not as a
// timeout.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
