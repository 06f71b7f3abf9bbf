package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/shipgrid/backend-import/internal/common"
	"github.com/shipgrid/backend-import/internal/obs"
)

// Rule is one sliding-window limit. Key derives the bucket from the request;
// requests with an empty key are not limited.
type Rule struct {
	Scope  string
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Middleware enforces rule with the sliding window limiter. A store failure
// is logged and the request goes through.
func (l Limiter) Middleware(rule Rule, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if rule.Key != nil {
				key = rule.Key(r)
			}
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			d, err := l.Allow(r.Context(), key, rule.Window, rule.Max)
			if err != nil {
				logger.Warn().Err(err).Str("scope", rule.Scope).Msg("rate_limit_store_error")
				next.ServeHTTP(w, r)
				return
			}
			writeHeaders(w, max(rule.Max, 0), d.Remaining, d.Reset)
			if !d.Allowed {
				reject(w, rule.Scope, d.Reset)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ByClientIP keys a limit on the caller address, namespaced by scope.
func ByClientIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		ip := common.ClientIP(r)
		if ip == "" {
			return ""
		}
		return scope + ":" + ip
	}
}

func writeHeaders(w http.ResponseWriter, limit, remaining int, reset time.Time) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

func reject(w http.ResponseWriter, scope string, reset time.Time) {
	retry := int(time.Until(reset).Round(time.Second).Seconds())
	w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
	obs.ObserveRateLimited(scope)
	common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", map[string]any{
		"retryAfterSeconds": max(retry, 1),
	})
}
