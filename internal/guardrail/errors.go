package guardrail

import (
	"fmt"
	"strings"
	"time"

	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// ConfigurationError reports invalid guardrail parameters detected at
// construction. A guardrail that fails construction must never be added to a
// live pipeline.
type ConfigurationError struct {
	Guardrail  string
	Violations []string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("guardrail %q configuration invalid: %s",
		e.Guardrail, strings.Join(e.Violations, "; "))
}

// Is matches any GUARDRAIL_CONFIG_INVALID StingerError.
func (e *ConfigurationError) Is(target error) bool {
	return types.CodeOf(target) == types.GUARDRAIL_CONFIG_INVALID
}

// NewConfigurationError creates a ConfigurationError for the named guardrail.
func NewConfigurationError(name string, violations ...string) *ConfigurationError {
	return &ConfigurationError{Guardrail: name, Violations: violations}
}

// TimeoutError reports that one guardrail exceeded its evaluation bound.
// It is resolved per the guardrail's on_error policy, never silently
// escalated to block.
type TimeoutError struct {
	Guardrail string
	Timeout   time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("guardrail %q exceeded its %s timeout", e.Guardrail, e.Timeout)
}

// Is matches any GUARDRAIL_TIMEOUT StingerError.
func (e *TimeoutError) Is(target error) bool {
	return types.CodeOf(target) == types.GUARDRAIL_TIMEOUT
}

// NewTimeoutError creates a TimeoutError for the named guardrail.
func NewTimeoutError(name string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Guardrail: name, Timeout: timeout}
}
