// Package ratelimit throttles requests per client address.
package ratelimit

import (
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultMaxClients = 10000

// Limiter hands out one token bucket per client address.
type Limiter struct {
	mu         sync.Mutex
	clients    map[netip.Addr]*client
	rate       rate.Limit
	burst      int
	idle       time.Duration
	maxClients int
	trusted    []netip.Prefix
	now        func() time.Time
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing r requests per second with bursts of b.
// Clients idle for longer than idle are dropped by Sweep. Forwarding headers are
// honoured only from trustedProxies; with none configured every proxy is trusted.
func New(r rate.Limit, b int, idle time.Duration, trustedProxies []string) *Limiter {
	l := &Limiter{
		clients:    make(map[netip.Addr]*client),
		rate:       r,
		burst:      b,
		idle:       idle,
		maxClients: defaultMaxClients,
		now:        time.Now,
	}
	for _, entry := range trustedProxies {
		if p, err := netip.ParsePrefix(entry); err == nil {
			l.trusted = append(l.trusted, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(entry); err == nil {
			l.trusted = append(l.trusted, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return l
}

// Allow reports whether addr may make another request now.
func (l *Limiter) Allow(addr netip.Addr) bool {
	l.mu.Lock()
	c, ok := l.clients[addr]
	if !ok {
		if len(l.clients) >= l.maxClients {
			l.evictOldestLocked()
		}
		c = &client{bucket: rate.NewLimiter(l.rate, l.burst)}
		l.clients[addr] = c
	}
	now := l.now()
	c.lastSeen = now
	bucket := c.bucket
	l.mu.Unlock()
	return bucket.AllowN(now, 1)
}

// Sweep removes idle clients and returns how many remain. It is run by the scheduler.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idle)
	for addr, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, addr)
		}
	}
	return len(l.clients)
}

func (l *Limiter) evictOldestLocked() {
	var oldest netip.Addr
	var oldestSeen time.Time
	for addr, c := range l.clients {
		if !oldest.IsValid() || c.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen = addr, c.lastSeen
		}
	}
	if oldest.IsValid() {
		delete(l.clients, oldest)
	}
}

// Middleware rejects clients over their budget with 429.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(l.ClientAddr(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddr resolves the caller's address, following X-Forwarded-For and
// X-Real-IP only when the direct peer is a trusted proxy.
func (l *Limiter) ClientAddr(r *http.Request) netip.Addr {
	peer := parseAddr(r.RemoteAddr)
	if len(l.trusted) > 0 && !l.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if a, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return a.Unmap()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if a, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return a.Unmap()
		}
	}
	return peer
}

func (l *Limiter) isTrusted(a netip.Addr) bool {
	for _, p := range l.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func parseAddr(remote string) netip.Addr {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap()
	}
	a, _ := netip.ParseAddr(remote)
	return a.Unmap()
}
