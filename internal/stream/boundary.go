package stream

import (
	"strings"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
)

// Boundary is the checkpoint granularity at which a guardrail re-runs during
// streaming. Faster guardrails re-check at finer boundaries.
type Boundary int

const (
	// BoundaryChunk re-checks on every update.
	BoundaryChunk Boundary = iota
	// BoundaryWord re-checks when the delta contains whitespace.
	BoundaryWord
	// BoundarySentence re-checks when the delta contains sentence punctuation.
	BoundarySentence
	// BoundaryParagraph re-checks when the delta contains a blank line.
	BoundaryParagraph
)

// String returns the boundary name.
func (b Boundary) String() string {
	switch b {
	case BoundaryChunk:
		return "chunk"
	case BoundaryWord:
		return "word"
	case BoundarySentence:
		return "sentence"
	case BoundaryParagraph:
		return "paragraph"
	default:
		return "unknown"
	}
}

// boundaryFor maps a performance class to its checkpoint granularity.
func boundaryFor(class guardrail.PerformanceClass) Boundary {
	switch class {
	case guardrail.PerfInstant:
		return BoundaryChunk
	case guardrail.PerfFast:
		return BoundaryWord
	case guardrail.PerfModerate:
		return BoundarySentence
	default:
		return BoundaryParagraph
	}
}

// crossed reports whether the delta contains at least one boundary of this
// granularity, i.e. whether a checkpoint is due.
func (b Boundary) crossed(delta string) bool {
	if delta == "" {
		return false
	}
	switch b {
	case BoundaryChunk:
		return true
	case BoundaryWord:
		return strings.ContainsAny(delta, " \t\n")
	case BoundarySentence:
		return strings.ContainsAny(delta, ".!?")
	case BoundaryParagraph:
		return strings.Contains(delta, "\n\n")
	default:
		return false
	}
}
