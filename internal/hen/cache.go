package hen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jw6ventures/henboard/internal/calendar"
	"github.com/jw6ventures/henboard/internal/metrics"
)

// CachedSource keeps the last experiment list per user in memory.
// The backend computes the shared flag per viewer, so entries are never
// shared between users.
type CachedSource struct {
	src  ExperimentSource
	ttl  time.Duration
	idle time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	reservations []calendar.Reservation
	fetchedAt    time.Time
	lastRead     time.Time
}

// NewCachedSource serves entries younger than ttl from memory. Refresh drops
// users that have not read their entry for ten times ttl.
func NewCachedSource(src ExperimentSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		src:     src,
		ttl:     ttl,
		idle:    10 * ttl,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// ListExperiments implements ExperimentSource.
func (c *CachedSource) ListExperiments(ctx context.Context, username string) ([]calendar.Reservation, error) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.entries[username]; ok && now.Sub(e.fetchedAt) < c.ttl {
		e.lastRead = now
		out := append([]calendar.Reservation(nil), e.reservations...)
		c.mu.Unlock()
		metrics.RecordCacheLookup(true)
		return out, nil
	}
	c.mu.Unlock()
	metrics.RecordCacheLookup(false)

	reservations, err := c.src.ListExperiments(ctx, username)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[username] = &cacheEntry{reservations: reservations, fetchedAt: now, lastRead: now}
	c.mu.Unlock()
	return append([]calendar.Reservation(nil), reservations...), nil
}

// Invalidate forgets the cached list for one user.
func (c *CachedSource) Invalidate(username string) {
	c.mu.Lock()
	delete(c.entries, username)
	c.mu.Unlock()
}

// Len returns the number of cached users.
func (c *CachedSource) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Refresh re-fetches every recently read entry and evicts idle ones.
// A failed fetch keeps the previous list.
func (c *CachedSource) Refresh(ctx context.Context) error {
	now := c.now()

	c.mu.Lock()
	var users []string
	for user, e := range c.entries {
		if now.Sub(e.lastRead) > c.idle {
			delete(c.entries, user)
			continue
		}
		users = append(users, user)
	}
	c.mu.Unlock()

	var errs []error
	for _, user := range users {
		reservations, err := c.src.ListExperiments(ctx, user)
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", user, err))
			continue
		}
		c.mu.Lock()
		if e, ok := c.entries[user]; ok {
			e.reservations = reservations
			e.fetchedAt = c.now()
		}
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

// ScheduleRefresh registers Refresh on the scheduler using a standard cron expression.
func (c *CachedSource) ScheduleRefresh(sched *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	return sched.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			log.Printf("[WARN] experiment cache refresh: %v", err)
		}
	})
}
