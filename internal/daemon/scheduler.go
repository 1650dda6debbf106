package daemon

import (
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Scheduler runs repeating jobs on their own goroutines.
// Close cancels every job and waits for them to return.
type Scheduler struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	jobs   map[int]chan struct{}
	nextID int
	closed bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{jobs: make(map[int]chan struct{})}
}

// Repeat calls fn every interval until cancelled. A closed scheduler
// accepts no jobs and returns a no-op CancelFunc.
func (s *Scheduler) Repeat(interval time.Duration, fn func()) domain.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	id := s.nextID
	s.nextID++
	done := make(chan struct{})
	s.jobs[id] = done

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// A job cancelled mid-tick must not run again.
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if ch, ok := s.jobs[id]; ok {
				close(ch)
				delete(s.jobs, id)
			}
		})
	}
}

// Len returns the number of live jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Close cancels all jobs and waits for running ones to finish.
// It must not be called from inside a job.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id, ch := range s.jobs {
		close(ch)
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Ensure Scheduler implements domain.Scheduler.
var _ domain.Scheduler = (*Scheduler)(nil)
