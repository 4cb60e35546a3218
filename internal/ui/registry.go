package ui

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jw6ventures/henboard/internal/calendar"
	"github.com/jw6ventures/henboard/internal/metrics"
)

// Registry holds one Calendar per browser session so shifts accumulate
// between requests.
type Registry struct {
	mu      sync.Mutex
	idle    time.Duration
	now     func() time.Time
	entries map[string]*sessionCalendar
}

type sessionCalendar struct {
	cal      *calendar.Calendar
	step     int
	lastUsed time.Time
}

// NewRegistry drops calendars unused for longer than idle when swept.
func NewRegistry(idle time.Duration) *Registry {
	return &Registry{
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*sessionCalendar),
	}
}

// Get returns the session's calendar and its selected step.
func (r *Registry) Get(sessionID string) (*calendar.Calendar, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return nil, 0, false
	}
	e.lastUsed = r.now()
	return e.cal, e.step, true
}

// Put stores cal for the session, replacing any previous calendar.
func (r *Registry) Put(sessionID string, cal *calendar.Calendar, step int) {
	r.mu.Lock()
	r.entries[sessionID] = &sessionCalendar{cal: cal, step: step, lastUsed: r.now()}
	n := len(r.entries)
	r.mu.Unlock()
	metrics.SetActiveCalendars(n)
}

// SetStep remembers the step last chosen in the step selector.
func (r *Registry) SetStep(sessionID string, step int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		e.step = step
		e.lastUsed = r.now()
	}
}

func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	n := len(r.entries)
	r.mu.Unlock()
	metrics.SetActiveCalendars(n)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops idle calendars and returns how many remain.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	cutoff := r.now().Add(-r.idle)
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, id)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()
	metrics.SetActiveCalendars(n)
	return n
}

// Schedule registers Sweep with the scheduler.
func (r *Registry) Schedule(sched *cron.Cron, spec string) (cron.EntryID, error) {
	return sched.AddFunc(spec, func() {
		if n := r.Sweep(); n > 0 {
			log.Printf("[INFO] %d session calendars active", n)
		}
	})
}
