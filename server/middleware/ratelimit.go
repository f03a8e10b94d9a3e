package middleware

import (
	"net"
	"net/http"
	"sync"

	"github.com/kbukum/endpoints/auth"
	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/resilience"
)

// RateLimitConfig configures per-caller request limiting.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RequestsPerSecond is the sustained rate per caller.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	// Burst is the bucket size per caller.
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// maxTrackedCallers bounds the limiter map before idle callers are swept.
const maxTrackedCallers = 10000

// RateLimit applies a token bucket per caller. Authenticated callers are
// keyed by principal subject, anonymous ones by client IP. Paths in
// quietPaths are never limited.
func RateLimit(cfg RateLimitConfig) Middleware {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*resilience.RateLimiter)
	)
	limiterFor := func(key string) *resilience.RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		rl, ok := limiters[key]
		if !ok {
			if len(limiters) >= maxTrackedCallers {
				for k, idle := range limiters {
					if idle.Full() {
						delete(limiters, k)
					}
				}
			}
			rl = resilience.NewRateLimiter(resilience.RateLimiterConfig{
				Name:  key,
				Rate:  cfg.RequestsPerSecond,
				Burst: cfg.Burst,
			})
			limiters[key] = rl
		}
		return rl
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !quietPaths[r.URL.Path] && !limiterFor(callerKey(r)).Allow() {
				WriteError(w, errors.RateLimited())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok && p.Subject != "" {
		return "sub:" + p.Subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
