package autosave

import (
	"sync"
	"time"
)

// Status is the shared save indicator. It is raised while any save is
// outstanding and lowered, with the completion time, once all have settled.
type Status struct {
	mu          sync.Mutex
	outstanding int
	lastSavedAt time.Time
	lastErr     error
	now         func() time.Time
}

// StatusSnapshot is a point-in-time copy of Status
type StatusSnapshot struct {
	Saving      bool      `json:"saving"`
	Outstanding int       `json:"outstanding"`
	LastSavedAt time.Time `json:"last_saved_at,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// NewStatus creates an idle Status
func NewStatus() *Status {
	return &Status{now: time.Now}
}

// Begin marks a save as started
func (s *Status) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding++
}

// Settle marks a save as finished. A nil err records the save time.
func (s *Status) Settle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outstanding > 0 {
		s.outstanding--
	}
	if err != nil {
		s.lastErr = err
		return
	}
	s.lastErr = nil
	if s.now == nil {
		s.now = time.Now
	}
	s.lastSavedAt = s.now()
}

// Saving reports whether any save is outstanding
func (s *Status) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding > 0
}

// Snapshot returns the current state
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatusSnapshot{
		Saving:      s.outstanding > 0,
		Outstanding: s.outstanding,
		LastSavedAt: s.lastSavedAt,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
