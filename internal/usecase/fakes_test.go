package usecase

import (
	"errors"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// memStore implements domain.KeyValueStore for testing
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Close() error { return nil }

// failingStore fails every read
type failingStore struct{ *memStore }

func (f *failingStore) Get(string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

// fakeClock is a settable domain.Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeScheduler records jobs; tests fire them by hand
type fakeScheduler struct {
	mu   sync.Mutex
	jobs []*fakeJob
}

type fakeJob struct {
	interval  time.Duration
	fn        func()
	cancelled bool
}

func (s *fakeScheduler) Repeat(interval time.Duration, fn func()) domain.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &fakeJob{interval: interval, fn: fn}
	s.jobs = append(s.jobs, j)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		j.cancelled = true
	}
}

// fire runs every live job n times.
func (s *fakeScheduler) fire(n int) {
	for i := 0; i < n; i++ {
		for _, j := range s.live() {
			j.fn()
		}
	}
}

func (s *fakeScheduler) live() []*fakeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeJob
	for _, j := range s.jobs {
		if !j.cancelled {
			out = append(out, j)
		}
	}
	return out
}

// recordingObserver counts evaluations
type recordingObserver struct {
	mu    sync.Mutex
	calls int
	last  domain.BlockingDecision
}

func (o *recordingObserver) Evaluated(d domain.BlockingDecision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.last = d
}
