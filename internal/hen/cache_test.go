package hen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jw6ventures/henboard/internal/calendar"
)

type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func (f *fakeSource) ListExperiments(ctx context.Context, username string) ([]calendar.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[username]++
	if f.fail {
		return nil, errors.New("backend down")
	}
	return []calendar.Reservation{{ID: username + "-1", Owner: username, NodeIDs: []string{"n1"}}}, nil
}

func (f *fakeSource) count(user string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[user]
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestCachedSourceServesFreshEntries(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{t: time.Date(2006, 6, 1, 10, 0, 0, 0, time.UTC)}
	cache := NewCachedSource(src, time.Minute)
	cache.now = clock.now

	for i := 0; i < 3; i++ {
		got, err := cache.ListExperiments(context.Background(), "alice")
		if err != nil || len(got) != 1 || got[0].Owner != "alice" {
			t.Fatalf("ListExperiments() = %v, %v", got, err)
		}
	}
	if n := src.count("alice"); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, err := cache.ListExperiments(context.Background(), "alice"); err != nil {
		t.Fatalf("ListExperiments() unexpected error: %v", err)
	}
	if n := src.count("alice"); n != 2 {
		t.Errorf("backend calls after expiry = %d, want 2", n)
	}

	cache.Invalidate("alice")
	if cache.Len() != 0 {
		t.Errorf("Len() after Invalidate = %d", cache.Len())
	}
}

func TestCachedSourceKeepsUsersApart(t *testing.T) {
	cache := NewCachedSource(&fakeSource{}, time.Minute)
	a, _ := cache.ListExperiments(context.Background(), "alice")
	b, _ := cache.ListExperiments(context.Background(), "bob")
	if a[0].Owner != "alice" || b[0].Owner != "bob" {
		t.Errorf("entries mixed up: %v %v", a, b)
	}
	// Callers may mutate what they get back.
	a[0].Owner = "mallory"
	again, _ := cache.ListExperiments(context.Background(), "alice")
	if again[0].Owner != "alice" {
		t.Error("cached slice was mutated by caller")
	}
}

func TestCachedSourceRefresh(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeClock{t: time.Date(2006, 6, 1, 10, 0, 0, 0, time.UTC)}
	cache := NewCachedSource(src, time.Minute)
	cache.now = clock.now

	_, _ = cache.ListExperiments(context.Background(), "alice")
	clock.t = clock.t.Add(5 * time.Minute)
	_, _ = cache.ListExperiments(context.Background(), "bob")

	clock.t = clock.t.Add(6 * time.Minute)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after evicting idle alice", cache.Len())
	}
	if n := src.count("bob"); n != 2 {
		t.Errorf("bob backend calls = %d, want 2", n)
	}
	if n := src.count("alice"); n != 1 {
		t.Errorf("alice backend calls = %d, want 1", n)
	}

	src.fail = true
	if err := cache.Refresh(context.Background()); err == nil {
		t.Error("expected Refresh() to report backend failure")
	}
	src.fail = false
	got, err := cache.ListExperiments(context.Background(), "bob")
	if err != nil || len(got) != 1 {
		t.Errorf("previous list should survive failed refresh: %v, %v", got, err)
	}
}

func TestScheduleRefresh(t *testing.T) {
	cache := NewCachedSource(&fakeSource{}, time.Minute)
	sched := cron.New()

	if _, err := cache.ScheduleRefresh(sched, "*/5 * * * *", time.Second); err != nil {
		t.Fatalf("ScheduleRefresh() unexpected error: %v", err)
	}
	if n := len(sched.Entries()); n != 1 {
		t.Errorf("scheduled entries = %d, want 1", n)
	}
	if _, err := cache.ScheduleRefresh(sched, "not a schedule", time.Second); err == nil {
		t.Error("expected error for invalid cron schedule")
	}
}
