// Package labeltest provides fakes for testing labeling components without
// timers or a tracking service.
package labeltest

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler holds scheduled work until the test fires it
type ManualScheduler struct {
	mu        sync.Mutex
	pending   map[string]scheduled
	scheduled int
}

type scheduled struct {
	delay time.Duration
	fn    func()
}

// NewManualScheduler creates an empty ManualScheduler
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[string]scheduled)}
}

func (s *ManualScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = scheduled{delay: delay, fn: fn}
	s.scheduled++
}

func (s *ManualScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
}

func (s *ManualScheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Len returns the number of armed keys
func (s *ManualScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Scheduled returns how many times Schedule was called
func (s *ManualScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}

// Delay returns the delay of the pending work for key
func (s *ManualScheduler) Delay(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.pending[key]
	return w.delay, ok
}

// Fire runs the pending work for key synchronously
func (s *ManualScheduler) Fire(key string) bool {
	s.mu.Lock()
	w, ok := s.pending[key]
	delete(s.pending, key)
	s.mu.Unlock()

	if ok {
		w.fn()
	}
	return ok
}

// FireAll runs all pending work in key order and returns how much ran
func (s *ManualScheduler) FireAll() int {
	s.mu.Lock()
	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	n := 0
	for _, k := range keys {
		if s.Fire(k) {
			n++
		}
	}
	return n
}
