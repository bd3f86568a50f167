package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// RequestLogger logs incoming requests.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = 5 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiters struct {
	mu     sync.Mutex
	rps    rate.Limit
	burst  int
	maxIPs int
	items  map[string]*ipLimiter
}

func (l *ipLimiters) allow(ip string, now time.Time) (allowed, evicted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.items[ip]
	if !ok {
		if len(l.items) >= l.maxIPs {
			l.evictOldestLocked()
			evicted = true
		}
		lim = &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.items[ip] = lim
	}
	lim.lastSeen = now
	return lim.limiter.AllowN(now, 1), evicted
}

func (l *ipLimiters) evictOldestLocked() {
	var oldestIP string
	var oldest time.Time
	for ip, lim := range l.items {
		if oldestIP == "" || lim.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, lim.lastSeen
		}
	}
	delete(l.items, oldestIP)
}

func (l *ipLimiters) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, lim := range l.items {
		if now.Sub(lim.lastSeen) > limiterIdleTTL {
			delete(l.items, ip)
		}
	}
}

// RateLimitMiddleware applies a token bucket per client IP. At most maxIPs
// buckets are kept; the least recently seen one is evicted when full. Idle
// buckets are swept until ctx is done.
func RateLimitMiddleware(ctx context.Context, rps float64, burst, maxIPs int, log *slog.Logger) func(http.Handler) http.Handler {
	if burst <= 0 {
		burst = 1
	}
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	limiters := &ipLimiters{
		rps:    rate.Limit(rps),
		burst:  burst,
		maxIPs: maxIPs,
		items:  make(map[string]*ipLimiter),
	}

	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				limiters.sweep(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			allowed, evicted := limiters.allow(ip, time.Now())
			if evicted {
				log.Debug("rate limiter at capacity, evicted least recent ip", "max_ips", maxIPs)
			}
			if !allowed {
				log.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				jsonError(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts X-Forwarded-For and X-Real-IP only from loopback or
// private peers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer != nil && (peer.IsLoopback() || peer.IsPrivate()) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	if peer != nil {
		return peer.String()
	}
	return host
}
