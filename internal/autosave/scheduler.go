package autosave

import (
	"sync"
	"time"
)

// Scheduler runs debounced work by key. Scheduling a key replaces its pending
// work, so at most one timer is live per key.
type Scheduler interface {
	Schedule(key string, delay time.Duration, fn func())
	Cancel(key string)
	Pending(key string) bool
}

// TimerScheduler implements Scheduler with time.AfterFunc
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*timerEntry
}

type timerEntry struct {
	timer *time.Timer
}

// NewTimerScheduler creates a TimerScheduler
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*timerEntry)}
}

// Schedule arms fn to run after delay, replacing any pending work for key
func (s *TimerScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[key]; ok {
		prev.timer.Stop()
	}

	entry := &timerEntry{}
	entry.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// a timer that already fired may have been replaced or cancelled
		// before it could take the lock
		if s.timers[key] != entry {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
	s.timers[key] = entry
}

// Cancel drops pending work for key
func (s *TimerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.timers[key]; ok {
		entry.timer.Stop()
		delete(s.timers, key)
	}
}

// Pending reports whether work is armed for key
func (s *TimerScheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Stop cancels all pending work
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, key)
	}
}
