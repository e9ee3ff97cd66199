package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/vanishhq/vanish/internal/ratelimit"
)

// RateLimit gates the wrapped handlers with one limiter class, keyed by
// client IP. Rejections carry a Retry-After header derived from the window
// reset.
func RateLimit(limiter *ratelimit.Limiter, class ratelimit.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := limiter.Allow(class, clientIP(r))
			if err != nil {
				if retryAfter, ok := ratelimit.IsRateLimited(err); ok {
					seconds := int(retryAfter.Seconds())
					if seconds < 1 {
						seconds = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(seconds))
					http.Error(w, "Too many requests", http.StatusTooManyRequests)
					return
				}
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop since the service is
// expected to sit behind a reverse proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
