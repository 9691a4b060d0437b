package guardrail

import (
	"fmt"

	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// PerformanceClass is an ordered latency classification for a guardrail.
// It is declared statically by each guardrail and drives the default
// execution mode.
type PerformanceClass int

const (
	// PerfInstant completes in under 10ms.
	PerfInstant PerformanceClass = iota
	// PerfFast completes in 10-100ms.
	PerfFast
	// PerfModerate completes in 100ms-1s.
	PerfModerate
	// PerfSlow completes in 1-5s.
	PerfSlow
	// PerfVerySlow takes over 5s.
	PerfVerySlow
)

// String returns the lowercase name of the performance class.
func (c PerformanceClass) String() string {
	switch c {
	case PerfInstant:
		return "instant"
	case PerfFast:
		return "fast"
	case PerfModerate:
		return "moderate"
	case PerfSlow:
		return "slow"
	case PerfVerySlow:
		return "very_slow"
	default:
		return fmt.Sprintf("performance_class(%d)", int(c))
	}
}

// ParsePerformanceClass parses a performance class name.
func ParsePerformanceClass(s string) (PerformanceClass, error) {
	switch s {
	case "instant":
		return PerfInstant, nil
	case "fast":
		return PerfFast, nil
	case "moderate":
		return PerfModerate, nil
	case "slow":
		return PerfSlow, nil
	case "very_slow":
		return PerfVerySlow, nil
	default:
		return 0, types.NewError(types.CONFIG_VALIDATION_FAILED, "unknown performance class: "+s)
	}
}

// DefaultMode returns the default execution mode for this class:
// instant/fast block inline, slow/very_slow run async, moderate blocks by
// default but may be overridden either way.
func (c PerformanceClass) DefaultMode() ExecutionMode {
	switch c {
	case PerfSlow, PerfVerySlow:
		return ModeMonitor
	default:
		return ModeBlock
	}
}

// ExecutionMode determines how a guardrail participates in a pipeline verdict.
type ExecutionMode string

const (
	// ModeBlock runs the guardrail inline; its result contributes to the
	// verdict and can veto the message.
	ModeBlock ExecutionMode = "block"
	// ModeMonitor runs the guardrail asynchronously; its result reaches only
	// the audit trail and can never change a verdict.
	ModeMonitor ExecutionMode = "monitor"
	// ModeDisabled excludes the guardrail from evaluation entirely.
	ModeDisabled ExecutionMode = "disabled"
)

// ParseExecutionMode parses an execution mode name.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch ExecutionMode(s) {
	case ModeBlock, ModeMonitor, ModeDisabled:
		return ExecutionMode(s), nil
	default:
		return "", types.NewError(types.CONFIG_VALIDATION_FAILED, "unknown execution mode: "+s)
	}
}

// ModeOverride is a per-deployment override of a guardrail's default
// execution mode. Moving a very_slow guardrail into block mode requires
// AcknowledgeSlow, preventing accidental head-of-line blocking by a
// multi-second call.
type ModeOverride struct {
	Mode            ExecutionMode
	AcknowledgeSlow bool
}

// ResolveMode maps a declared performance class plus an optional override to
// the execution mode a pipeline uses. A nil override yields the class default.
func ResolveMode(class PerformanceClass, override *ModeOverride) (ExecutionMode, error) {
	if override == nil {
		return class.DefaultMode(), nil
	}

	if override.Mode == ModeBlock && class == PerfVerySlow && !override.AcknowledgeSlow {
		return "", types.NewError(types.CONFIG_VALIDATION_FAILED,
			"refusing to run a very_slow guardrail in block mode without acknowledge_slow")
	}

	return override.Mode, nil
}

// OnErrorPolicy decides how a guardrail failure or timeout is resolved.
// Failures are isolated per guardrail and never abort siblings; the policy
// only shapes that guardrail's contributed result.
type OnErrorPolicy string

const (
	// OnErrorAllow contributes a plain allow.
	OnErrorAllow OnErrorPolicy = "allow"
	// OnErrorWarn contributes an allow-with-warning. This is the default;
	// an error is never silently escalated to block.
	OnErrorWarn OnErrorPolicy = "warn"
	// OnErrorBlock contributes a block. Must be configured explicitly.
	OnErrorBlock OnErrorPolicy = "block"
)

// ParseOnErrorPolicy parses an on_error policy name, defaulting empty to warn.
func ParseOnErrorPolicy(s string) (OnErrorPolicy, error) {
	switch OnErrorPolicy(s) {
	case "":
		return OnErrorWarn, nil
	case OnErrorAllow, OnErrorWarn, OnErrorBlock:
		return OnErrorPolicy(s), nil
	default:
		return "", types.NewError(types.CONFIG_VALIDATION_FAILED, "unknown on_error policy: "+s)
	}
}

// Resolve produces the result a failed guardrail contributes under this policy.
func (p OnErrorPolicy) Resolve(name string, cause error) Result {
	reason := fmt.Sprintf("guardrail %q failed: %v", name, cause)
	switch p {
	case OnErrorAllow:
		r := NewAllowResult(name)
		r.Reason = reason
		return r
	case OnErrorBlock:
		return NewBlockResult(name, reason, 0)
	default:
		return NewWarnResult(name, reason, 0)
	}
}
