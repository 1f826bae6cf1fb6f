package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает число запросов с одного IP-адреса: limit запросов за window.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientLimiter
	rate       rate.Limit
	burst      int
	trustProxy bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewRateLimiter создаёт ограничитель с пополнением limit токенов за window и запасом limit.
// При trustProxy клиент определяется по X-Forwarded-For, иначе по адресу соединения.
func NewRateLimiter(limit int, window time.Duration, trustProxy bool, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rate:       rate.Every(window / time.Duration(limit)),
		burst:      limit,
		trustProxy: trustProxy,
		logger:     logger,
		now:        time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = rl.now()
	return cl.limiter
}

// Handler возвращает middleware, отвечающий 429 при превышении лимита.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.clientKey(r)

		if !rl.getLimiter(key).Allow() {
			rl.logger.Warn("rate limit exceeded",
				zap.String("client", key),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)

			retryAfter := math.Ceil(1 / float64(rl.rate))
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup удаляет ограничители клиентов, не обращавшихся дольше maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	for key, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// RunCleanup периодически вызывает Cleanup до отмены контекста.
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup(maxIdle)
		}
	}
}

func (rl *RateLimiter) clientKey(r *http.Request) string {
	if rl.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
