package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Fixed-window limiter ─────────────────────────────────────────────────────

type window struct {
	count int
	end   time.Time
}

// limiter counts requests per client IP in fixed windows.
type limiter struct {
	name   string
	limit  int
	period time.Duration

	mu      sync.Mutex
	clients map[string]*window
	now     func() time.Time
}

func newLimiter(name string, limit int, period time.Duration) *limiter {
	return &limiter{name: name, limit: limit, period: period, clients: make(map[string]*window), now: time.Now}
}

// allow records one hit for ip and reports whether it is within the limit,
// plus the end of the current window.
func (l *limiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[ip]
	if !ok || now.After(w.end) {
		w = &window{end: now.Add(l.period)}
		l.clients[ip] = w
	}
	w.count++
	return w.count <= l.limit, w.end
}

func (l *limiter) purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for ip, w := range l.clients {
		if now.After(w.end) {
			delete(l.clients, ip)
			n++
		}
	}
	return n
}

func (l *limiter) handler(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, end := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", end.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// ── Public constructors ──────────────────────────────────────────────────────

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	l := newLimiter("login", 20, time.Minute)
	registerForPurge(l)
	return l.handler("too many login attempts, try again in a minute")
}

// RateLimiter is a general per-IP limiter for the whole API.
func RateLimiter(limit int, period time.Duration) gin.HandlerFunc {
	l := newLimiter("api", limit, period)
	registerForPurge(l)
	return l.handler("too many requests, try again shortly")
}

// ── Purge goroutine ──────────────────────────────────────────────────────────
// Expired windows are dropped periodically so that IPs that never come back
// do not accumulate.

const purgeInterval = 5 * time.Minute

var (
	purgeMu    sync.Mutex
	purgeList  []*limiter
	purgeStart sync.Once
)

func registerForPurge(l *limiter) {
	purgeMu.Lock()
	purgeList = append(purgeList, l)
	purgeMu.Unlock()
	purgeStart.Do(func() { go purgeExpired() })
}

func purgeExpired() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		purgeMu.Lock()
		list := append([]*limiter(nil), purgeList...)
		purgeMu.Unlock()

		for _, l := range list {
			if n := l.purge(); n > 0 {
				log.Debug().Str("limiter", l.name).Int("entries_purged", n).Msg("rate limiter purged")
			}
		}
	}
}
