package review

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cognobserve/labeling/internal/assessment"
)

// Manager hands out one Workspace per reviewer and closes workspaces that
// have been unused for longer than the idle timeout
type Manager struct {
	api    API
	opts   Options
	idle   time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	workspaces map[string]*managed
}

type managed struct {
	ws       *Workspace
	lastUsed time.Time
}

// NewManager creates a Manager whose workspaces share opts. Each workspace
// arms its own timers, so opts.Scheduler is ignored.
func NewManager(api API, opts Options) *Manager {
	opts.Scheduler = nil
	m := &Manager{
		api:        api,
		opts:       opts,
		idle:       opts.IdleTimeout,
		logger:     opts.Logger,
		now:        time.Now,
		workspaces: make(map[string]*managed),
	}
	if m.idle <= 0 {
		m.idle = DefaultIdleTimeout
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Workspace returns the reviewer's workspace, creating it on first use. The
// identity given on creation is kept for the life of the workspace.
func (m *Manager) Workspace(subject string, identity assessment.Identity) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.workspaces[subject]; ok {
		e.lastUsed = m.now()
		return e.ws
	}
	w := NewWorkspace(m.api, identity, m.opts)
	m.workspaces[subject] = &managed{ws: w, lastUsed: m.now()}
	return w
}

// Lookup returns the reviewer's workspace if one exists
func (m *Manager) Lookup(subject string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.workspaces[subject]
	if !ok {
		return nil, false
	}
	e.lastUsed = m.now()
	return e.ws, true
}

// Len returns the number of live workspaces
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Sweep closes workspaces unused for the idle timeout. A workspace with a
// save armed or in flight is kept until the save settles. It returns the
// number of workspaces closed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	cutoff := m.now().Add(-m.idle)
	var expired []*Workspace
	for subject, e := range m.workspaces {
		if e.lastUsed.After(cutoff) || !e.ws.Idle() {
			continue
		}
		delete(m.workspaces, subject)
		expired = append(expired, e.ws)
	}
	m.mu.Unlock()

	for _, w := range expired {
		w.Close()
		m.logger.Info("closed idle workspace", "reviewer", w.Identity().Primary())
	}
	return len(expired)
}

// Run sweeps idle workspaces every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close closes every workspace
func (m *Manager) Close() {
	m.mu.Lock()
	workspaces := make([]*Workspace, 0, len(m.workspaces))
	for _, e := range m.workspaces {
		workspaces = append(workspaces, e.ws)
	}
	m.workspaces = make(map[string]*managed)
	m.mu.Unlock()

	for _, w := range workspaces {
		w.Close()
	}
}
