package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedIPs bounds the limiter map; a multi-tenant front door must
	// not grow state per distinct client forever.
	maxTrackedIPs = 4096

	// idleEviction is how long an IP's bucket may sit unused before it is
	// eligible for eviction.
	idleEviction = 10 * time.Minute
)

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client IP, bounded by
// maxTrackedIPs with idle entries swept on demand.
type ipRateLimiter struct {
	mu    sync.Mutex
	ips   map[string]*ipEntry
	rps   rate.Limit
	burst int
	now   func() time.Time
}

func newIPRateLimiter(rps rate.Limit, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		ips:   make(map[string]*ipEntry),
		rps:   rps,
		burst: burst,
		now:   time.Now,
	}
}

func (l *ipRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.ips[ip]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	if len(l.ips) >= maxTrackedIPs {
		l.evictLocked(now)
	}

	entry := &ipEntry{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: now}
	l.ips[ip] = entry
	return entry.limiter
}

// evictLocked drops idle entries, then the stalest remaining ones until the
// map is back under the cap. Callers hold the mutex.
func (l *ipRateLimiter) evictLocked(now time.Time) {
	for ip, entry := range l.ips {
		if now.Sub(entry.lastSeen) >= idleEviction {
			delete(l.ips, ip)
		}
	}
	for len(l.ips) >= maxTrackedIPs {
		stalestIP := ""
		var stalestSeen time.Time
		for ip, entry := range l.ips {
			if stalestIP == "" || entry.lastSeen.Before(stalestSeen) {
				stalestIP = ip
				stalestSeen = entry.lastSeen
			}
		}
		delete(l.ips, stalestIP)
	}
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// PerIPRateLimit bounds submissions per client IP in front of the execute
// route. The admission gate still bounds total concurrency behind it.
func PerIPRateLimit(rps rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := newIPRateLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.limiterFor(clientIP(r)).Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
