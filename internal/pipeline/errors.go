package pipeline

import (
	"fmt"
	"strings"

	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// ConflictingModificationError reports that two or more block-mode guardrails
// both proposed content modification for one message. The conflict is a
// configuration problem surfaced to the caller; the verdict is withheld
// rather than silently resolved by picking one.
type ConflictingModificationError struct {
	Guardrails []string
}

// Error implements the error interface.
func (e *ConflictingModificationError) Error() string {
	return fmt.Sprintf("conflicting content modifications proposed by guardrails: %s",
		strings.Join(e.Guardrails, ", "))
}

// Is matches any PIPELINE_CONFLICTING_MODIFY StingerError.
func (e *ConflictingModificationError) Is(target error) bool {
	return types.CodeOf(target) == types.PIPELINE_CONFLICTING_MODIFY
}

// NewConflictingModificationError creates a ConflictingModificationError.
func NewConflictingModificationError(guardrails ...string) *ConflictingModificationError {
	return &ConflictingModificationError{Guardrails: guardrails}
}
