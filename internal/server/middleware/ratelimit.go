package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/shoplist/adminapi/internal/model"
)

// RateLimit returns an HTTP middleware that limits requests per peer
// address to the specified number per minute. Forwarding headers are not
// trusted, matching the address the access gate checks.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusTooManyRequests, model.ErrorResponse{Error: "Rate limit exceeded"})
		}),
	)
}
