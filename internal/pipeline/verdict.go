package pipeline

import (
	"time"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// Verdict is the combined decision for one logical message.
//
// It aggregates every block-mode result evaluated for the message;
// monitor-mode outcomes arrive strictly later and reach only the audit
// trail, never a verdict already returned to the caller.
type Verdict struct {
	CorrelationID types.CorrelationID `json:"correlation_id"`
	Action        guardrail.Action    `json:"action"`

	// ModifiedContent is set only when Action is modify: the combined action
	// was allow and exactly one guardrail proposed a modification.
	ModifiedContent string `json:"modified_content,omitempty"`

	// Results holds every contributing block-mode result, in pipeline order,
	// including the reason text of each.
	Results []guardrail.Result `json:"results"`

	Elapsed time.Duration `json:"elapsed"`
}

// Blocked returns true if the final action is block.
func (v Verdict) Blocked() bool {
	return v.Action == guardrail.ActionBlock
}

// Reasons returns the non-empty reason texts of all contributing results.
func (v Verdict) Reasons() []string {
	var out []string
	for _, r := range v.Results {
		if r.Reason != "" {
			out = append(out, r.Reason)
		}
	}
	return out
}

// BlockResults returns the contributing results whose action is block.
func (v Verdict) BlockResults() []guardrail.Result {
	var out []guardrail.Result
	for _, r := range v.Results {
		if r.IsBlocked() {
			out = append(out, r)
		}
	}
	return out
}

// combine folds block-mode results into one verdict: the most severe action
// wins (block > warn > allow); a single modify proposal is honored only when
// the combined action is allow; two proposals are a configuration error.
func combine(corr types.CorrelationID, results []guardrail.Result, elapsed time.Duration) (Verdict, error) {
	verdict := Verdict{
		CorrelationID: corr,
		Action:        guardrail.ActionAllow,
		Results:       results,
		Elapsed:       elapsed,
	}

	var modifiers []guardrail.Result
	for _, r := range results {
		switch r.Action {
		case guardrail.ActionModify:
			modifiers = append(modifiers, r)
		case guardrail.ActionBlock, guardrail.ActionWarn:
			if r.Action.Severity() > verdict.Action.Severity() {
				verdict.Action = r.Action
			}
		}
	}

	if len(modifiers) > 1 {
		names := make([]string, len(modifiers))
		for i, m := range modifiers {
			names[i] = m.Guardrail
		}
		return Verdict{}, NewConflictingModificationError(names...)
	}

	if len(modifiers) == 1 && verdict.Action == guardrail.ActionAllow {
		verdict.Action = guardrail.ActionModify
		verdict.ModifiedContent = modifiers[0].ModifiedContent
	}

	return verdict, nil
}
