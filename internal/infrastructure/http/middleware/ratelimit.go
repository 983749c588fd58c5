package middleware

import (
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/amirhosseinghanipour/authhub/internal/application/project"
)

const limiterPrefix = "authhub_limiter"

// NewRateLimitStore returns a Redis store when client is non-nil, so the counter
// is shared by every instance, and an in-process store otherwise.
func NewRateLimitStore(client redis.UniversalClient) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          limiterPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		}), nil
	}
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: limiterPrefix, MaxRetry: 3})
}

// NewRateLimiter limits requests per client IP. Routes that do not resolve the
// API key use it, so a made-up key cannot buy a fresh bucket.
func NewRateLimiter(store limiter.Store, rate limiter.Rate) func(next http.Handler) http.Handler {
	return newRateLimiter(store, rate, ipKey)
}

// NewProjectRateLimiter limits requests per API key, or per client IP when no
// key is sent. Mount it only in front of a gate that rejects unknown keys.
func NewProjectRateLimiter(store limiter.Store, rate limiter.Rate) func(next http.Handler) http.Handler {
	return newRateLimiter(store, rate, apiKeyOrIPKey)
}

func newRateLimiter(store limiter.Store, rate limiter.Rate, key func(*http.Request) string) func(next http.Handler) http.Handler {
	instance := limiter.New(store, rate)
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithKeyGetter(key),
		stdlib.WithLimitReachedHandler(limitReached),
	)
	return mw.Handler
}

func apiKeyOrIPKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return "key:" + project.HashAPIKey(key)
	}
	return ipKey(r)
}

func ipKey(r *http.Request) string {
	return "ip:" + clientIP(r)
}

// clientIP relies on chi's RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func limitReached(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"message":"Too many requests. Please try again later.","code":"rate_limited"}`))
}
