package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/pipeline"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

const (
	defaultIdleTimeout     = 5 * time.Minute
	defaultJanitorInterval = 30 * time.Second
)

// Manager owns streaming sessions keyed by session id, enforcing the
// inactivity timeout and evicting finished sessions.
type Manager struct {
	pipe    *pipeline.Pipeline
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[types.ID]*Session

	janitorInterval time.Duration
	stopJanitor     chan struct{}
	janitorDone     chan struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithIdleTimeout sets the inactivity window after which a session times out.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithJanitorInterval sets how often idle sessions are swept.
func WithJanitorInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.janitorInterval = d
		}
	}
}

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given pipeline and starts its
// eviction janitor.
func NewManager(pipe *pipeline.Pipeline, opts ...ManagerOption) *Manager {
	m := &Manager{
		pipe:            pipe,
		timeout:         defaultIdleTimeout,
		logger:          slog.Default(),
		sessions:        make(map[types.ID]*Session),
		janitorInterval: defaultJanitorInterval,
		stopJanitor:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.janitor()
	return m
}

// Start creates a session over the given conversation (which may be nil)
// and returns its id.
func (m *Manager) Start(conv *conversation.Conversation) types.ID {
	session := newSession(m.pipe, conv)
	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()
	return session.ID()
}

// Update feeds a chunk to a session. It returns a verdict only when a
// checkpoint blocks.
func (m *Manager) Update(ctx context.Context, id types.ID, chunk string) (*pipeline.Verdict, error) {
	session, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return session.Update(ctx, chunk)
}

// Finish finalizes a session and returns its consolidated verdict.
func (m *Manager) Finish(ctx context.Context, id types.ID) (pipeline.Verdict, error) {
	session, err := m.lookup(id)
	if err != nil {
		return pipeline.Verdict{}, err
	}
	return session.Finish(ctx)
}

// Abort terminates a session without a verdict. In-flight monitor tasks for
// the session still complete and audit normally.
func (m *Manager) Abort(id types.ID) error {
	session, err := m.lookup(id)
	if err != nil {
		return err
	}
	session.Abort()
	return nil
}

// Session returns the session for an id, primarily for state inspection.
func (m *Manager) Session(id types.ID) (*Session, error) {
	return m.lookup(id)
}

// Close stops the janitor. Existing sessions remain queryable.
func (m *Manager) Close() {
	close(m.stopJanitor)
	<-m.janitorDone
}

// lookup fetches a session, applying the idle timeout lazily so expiry does
// not depend on janitor timing.
func (m *Manager) lookup(id types.ID) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, types.NewError(types.SESSION_NOT_FOUND, "no session with id "+id.String())
	}
	session.expireIfIdle(m.timeout, time.Now())
	return session, nil
}

// janitor periodically expires idle sessions and evicts terminal ones after
// a retention window, keeping recently-terminated sessions around so late
// callers get a precise error rather than "not found".
func (m *Manager) janitor() {
	defer close(m.janitorDone)
	ticker := time.NewTicker(m.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopJanitor:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	retention := 2 * m.timeout

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		if session.expireIfIdle(m.timeout, now) {
			m.logger.Info("session timed out", "session_id", id.String())
		}
		session.mu.Lock()
		terminal := session.state.Terminal()
		idle := now.Sub(session.lastActivity)
		session.mu.Unlock()
		if terminal && idle > retention {
			delete(m.sessions, id)
		}
	}
}
