package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// AuthMiddleware enforces API key authentication via the WEFT_API_KEY
// environment variable. If the variable is not set, it logs a warning and
// allows all requests (INSECURE mode). If set, it requires the
// Authorization header to contain "Bearer <key>".
func AuthMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	apiKey := os.Getenv("WEFT_API_KEY")
	if apiKey == "" {
		logger.Warn("Running in INSECURE mode: WEFT_API_KEY is not set. All requests are allowed.")
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "Unauthorized: Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized: Invalid API Key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// accountLimiter keeps one token bucket per calling account.
type accountLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newAccountLimiter() *accountLimiter {
	return &accountLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      50,
		burst:    100,
	}
}

func (a *accountLimiter) get(key string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[key]
	if !ok {
		l = rate.NewLimiter(a.rps, a.burst)
		a.limiters[key] = l
	}
	return l
}

// RateLimitMiddleware throttles per account (falling back to remote addr
// for unauthenticated reads).
func RateLimitMiddleware(limiter *accountLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Weft-Account")
		if key == "" {
			key = r.RemoteAddr
		}
		if !limiter.get(key).Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
