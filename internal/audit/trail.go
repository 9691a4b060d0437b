package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// Sink accepts audit entries for durable storage. Implementations must be
// safe for concurrent writers.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// Trail is the append-only, correlated record of every verdict.
//
// It is safe for concurrent writers: block-mode results are recorded
// synchronously by the scheduler, monitor-mode results arrive later from the
// worker pool. Query joins them by correlation id in append order.
type Trail struct {
	mu      sync.RWMutex
	entries []Entry
	byCorr  map[types.CorrelationID][]int

	sinks  []Sink
	logger *slog.Logger
}

// TrailOption configures a Trail.
type TrailOption func(*Trail)

// WithSink forwards every recorded entry to a durable sink. Sink failures are
// logged, never propagated: the in-memory trail is the source of truth for
// live queries.
func WithSink(sink Sink) TrailOption {
	return func(t *Trail) {
		t.sinks = append(t.sinks, sink)
	}
}

// WithLogger sets the logger used for sink write failures.
func WithLogger(logger *slog.Logger) TrailOption {
	return func(t *Trail) {
		t.logger = logger
	}
}

// NewTrail creates an empty audit trail.
func NewTrail(opts ...TrailOption) *Trail {
	t := &Trail{
		byCorr: make(map[types.CorrelationID][]int),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends an entry to the trail and forwards it to configured sinks.
func (t *Trail) Record(ctx context.Context, entry Entry) {
	t.mu.Lock()
	idx := len(t.entries)
	t.entries = append(t.entries, entry)
	t.byCorr[entry.CorrelationID] = append(t.byCorr[entry.CorrelationID], idx)
	t.mu.Unlock()

	for _, sink := range t.sinks {
		if err := sink.Write(ctx, entry); err != nil {
			t.logger.ErrorContext(ctx, "audit sink write failed",
				"guardrail", entry.Guardrail,
				"correlation_id", entry.CorrelationID.String(),
				"error", err,
			)
		}
	}
}

// Query returns all entries for a correlation id in append order.
func (t *Trail) Query(correlationID types.CorrelationID) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idxs := t.byCorr[correlationID]
	out := make([]Entry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, t.entries[i])
	}
	return out
}

// BySession returns all entries tagged with a streaming session id, in
// append order.
func (t *Trail) BySession(sessionID types.ID) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Entry
	for _, e := range t.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the total number of recorded entries.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
