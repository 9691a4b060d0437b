package guardrail

import (
	"context"

	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// Capability identifies the detection strategy of a guardrail.
// The set is closed: new strategies are added as new variants implementing
// the same contract, never by subclassing a shared base.
type Capability string

const (
	CapabilityPattern Capability = "pattern"
	CapabilityKeyword Capability = "keyword"
	CapabilityModel   Capability = "model"
)

// Direction declares which side of the model a guardrail applies to.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
	DirectionBoth   Direction = "both"
)

// AppliesTo reports whether a guardrail with this direction runs in a
// pipeline built for dir.
func (d Direction) AppliesTo(dir Direction) bool {
	return d == DirectionBoth || d == dir
}

// ParseDirection converts a direction name; the empty string means both.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "input":
		return DirectionInput, nil
	case "output":
		return DirectionOutput, nil
	case "both", "":
		return DirectionBoth, nil
	default:
		return "", types.NewError(types.GUARDRAIL_CONFIG_INVALID, "unknown direction: "+s)
	}
}

// Guardrail is a single content-inspection check.
//
// Analyze must be a pure function of its inputs plus static configuration:
// identical content and conversation state yield an identical action and
// reason. Guardrails never mutate the conversation; side effects are limited
// to the returned result, logging belongs to the caller.
type Guardrail interface {
	// Name returns the guardrail's identifier, unique within a pipeline.
	Name() string

	// Capability returns the detection strategy variant.
	Capability() Capability

	// Direction returns which pipeline direction(s) this guardrail applies to.
	Direction() Direction

	// Performance returns the declared latency class, which drives the
	// default execution mode.
	Performance() PerformanceClass

	// Analyze inspects content, optionally consulting the conversation for
	// multi-turn reasoning (conv may be nil), and returns a result.
	Analyze(ctx context.Context, content string, conv *conversation.Conversation) (Result, error)

	// ValidateConfig returns configuration violations; an empty slice means
	// the configuration is valid.
	ValidateConfig() []string
}

// FullContextChecker is implemented by stateful guardrails whose checkpoint
// evaluation cannot be scoped to a content delta. A streaming session re-runs
// such guardrails against the full accumulated buffer on finish instead of
// trusting incremental checkpoints.
type FullContextChecker interface {
	RequiresFullContext() bool
}

// RequiresFullContext reports whether g has declared that it needs
// whole-message context on every evaluation.
func RequiresFullContext(g Guardrail) bool {
	fc, ok := g.(FullContextChecker)
	return ok && fc.RequiresFullContext()
}
