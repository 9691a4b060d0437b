package audit

import (
	"time"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// Entry is one append-only audit record for a guardrail outcome.
//
// Entries are keyed by correlation id so that a late monitor-mode result can
// be joined back to the message it evaluated. Entries are never mutated or
// deleted by the core; retention is a storage collaborator's concern.
type Entry struct {
	CorrelationID types.CorrelationID     `json:"correlation_id"`
	SessionID     types.ID                `json:"session_id,omitempty"`
	Guardrail     string                  `json:"guardrail"`
	Mode          guardrail.ExecutionMode `json:"mode"`
	Result        guardrail.Result        `json:"result"`

	// WouldHaveBlocked marks a monitor-mode result that returned block; the
	// verdict already returned to the caller is unaffected.
	WouldHaveBlocked bool `json:"would_have_blocked"`

	// Dropped marks an entry recording a monitor task evicted from a
	// saturated queue before it ever ran.
	Dropped bool `json:"dropped,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewEntry creates an audit entry for a guardrail result.
func NewEntry(correlationID types.CorrelationID, mode guardrail.ExecutionMode, result guardrail.Result) Entry {
	return Entry{
		CorrelationID:    correlationID,
		Guardrail:        result.Guardrail,
		Mode:             mode,
		Result:           result,
		WouldHaveBlocked: mode == guardrail.ModeMonitor && result.IsBlocked(),
		Timestamp:        time.Now(),
	}
}

// NewDropEntry creates an audit entry recording a monitor task that never
// ran. The cause carries the scheduler error code explaining the drop.
func NewDropEntry(correlationID types.CorrelationID, name string, cause error) Entry {
	return Entry{
		CorrelationID: correlationID,
		Guardrail:     name,
		Mode:          guardrail.ModeMonitor,
		Result: guardrail.Result{
			Guardrail: name,
			Action:    guardrail.ActionAllow,
			Reason:    "monitor task dropped: " + cause.Error(),
			Timestamp: time.Now(),
		},
		Dropped:   true,
		Timestamp: time.Now(),
	}
}

// WithSession returns a copy of the entry tagged with a streaming session id.
func (e Entry) WithSession(sessionID types.ID) Entry {
	e.SessionID = sessionID
	return e
}
