package guardrail

import "time"

// Action defines the decision taken by a guardrail for one piece of content.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionWarn   Action = "warn"
	ActionBlock  Action = "block"
	ActionModify Action = "modify"
)

// Severity returns the ordering used for tie-breaking: block > warn > allow.
// Modify carries allow severity; it is applied separately and only when the
// combined action is allow.
func (a Action) Severity() int {
	switch a {
	case ActionBlock:
		return 3
	case ActionWarn:
		return 2
	case ActionModify:
		return 1
	case ActionAllow:
		return 1
	default:
		return 0
	}
}

// Result is the outcome of a single guardrail invocation. Immutable once created.
type Result struct {
	Guardrail       string        `json:"guardrail"`
	Action          Action        `json:"action"`
	Confidence      float64       `json:"confidence"`
	Reason          string        `json:"reason,omitempty"`
	ModifiedContent string        `json:"modified_content,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
	Elapsed         time.Duration `json:"elapsed"`
}

// IsBlocked returns true if the action is block.
func (r Result) IsBlocked() bool {
	return r.Action == ActionBlock
}

// AllowContinue returns true if execution should continue (allow, warn, or modify).
func (r Result) AllowContinue() bool {
	return r.Action != ActionBlock
}

// NewAllowResult creates a result that allows the content.
func NewAllowResult(name string) Result {
	return Result{
		Guardrail:  name,
		Action:     ActionAllow,
		Confidence: 1.0,
		Timestamp:  time.Now(),
	}
}

// NewBlockResult creates a result that blocks the content.
func NewBlockResult(name, reason string, confidence float64) Result {
	return Result{
		Guardrail:  name,
		Action:     ActionBlock,
		Reason:     reason,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}

// NewWarnResult creates a result that warns but allows the content.
func NewWarnResult(name, reason string, confidence float64) Result {
	return Result{
		Guardrail:  name,
		Action:     ActionWarn,
		Reason:     reason,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}

// NewModifyResult creates a result proposing modified content.
func NewModifyResult(name, reason, modified string, confidence float64) Result {
	return Result{
		Guardrail:       name,
		Action:          ActionModify,
		Reason:          reason,
		ModifiedContent: modified,
		Confidence:      confidence,
		Timestamp:       time.Now(),
	}
}

// WithElapsed returns a copy of the result with the elapsed duration recorded.
func (r Result) WithElapsed(d time.Duration) Result {
	r.Elapsed = d
	return r
}
