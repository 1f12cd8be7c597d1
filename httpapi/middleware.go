package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/delegatescan/delegatescan/log"
)

// HTTPMiddleware wraps an http.Handler. Mirrors the teacher's rpc package
// convention so the chain composes the same way.
type HTTPMiddleware func(http.Handler) http.Handler

// MiddlewareChain composes middlewares around handler, first-listed
// outermost.
func MiddlewareChain(handler http.Handler, middlewares ...HTTPMiddleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// DefaultCORSConfig returns a permissive CORS policy suitable for a public
// read-only analysis API.
func DefaultCORSConfig() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	}
}

// CORSMiddleware adapts rs/cors into an HTTPMiddleware, replacing the
// teacher's hand-rolled CORS header logic.
func CORSMiddleware(opts cors.Options) HTTPMiddleware {
	c := cors.New(opts)
	return c.Handler
}

// DefaultRateLimitConfig allows a modest burst of analysis requests per IP;
// DELEGATECALL tracing is CPU-bound enough that uncapped clients can starve
// others.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 5, Burst: 10}
}

// RateLimitConfig configures the per-IP token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RateLimitMiddleware throttles requests per client IP using
// golang.org/x/time/rate, replacing the teacher's hand-rolled sliding-window
// limiter.
func RateLimitMiddleware(cfg RateLimitConfig) HTTPMiddleware {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
			limiters[ip] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiterFor(ip).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx > 0 {
		return addr[:idx]
	}
	return addr
}

// statusRecorder wraps http.ResponseWriter to capture the status code for
// logging, mirroring the teacher's rpc.statusRecorder.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status, and latency for every
// request via the shared structured logger.
func LoggingMiddleware(logger *log.Logger) HTTPMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.statusCode,
				"duration", time.Since(start),
				"remote", clientIP(r),
			)
		})
	}
}
