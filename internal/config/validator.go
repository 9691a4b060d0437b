package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail/builtin"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a Validator instance.
func NewValidator() Validator {
	return &validatorImpl{validate: validator.New()}
}

// Validate checks struct tags plus the guardrail-specific rules that tags
// cannot express.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
		}
		messages := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			messages = append(messages, formatValidationError(e))
		}
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - "+strings.Join(messages, "\n  - "))
	}

	if err := validateGuardrails("input", cfg.Input); err != nil {
		return err
	}
	return validateGuardrails("output", cfg.Output)
}

func validateGuardrails(section string, entries []builtin.GuardrailConfig) error {
	seen := make(map[string]bool)
	for i, entry := range entries {
		where := fmt.Sprintf("%s[%d]", section, i)
		if entry.Type == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED, where+": guardrail type is required")
		}
		name := entry.Name
		if name == "" {
			name = entry.Type
		}
		if seen[name] {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("%s: duplicate guardrail name %q", where, name))
		}
		seen[name] = true
		if entry.Mode != "" {
			if _, err := guardrail.ParseExecutionMode(entry.Mode); err != nil {
				return types.WrapError(types.CONFIG_VALIDATION_FAILED, where+": invalid mode", err)
			}
		}
		if entry.OnError != "" {
			if _, err := guardrail.ParseOnErrorPolicy(entry.OnError); err != nil {
				return types.WrapError(types.CONFIG_VALIDATION_FAILED, where+": invalid on_error policy", err)
			}
		}
		if entry.Timeout < 0 {
			return types.NewError(types.CONFIG_VALIDATION_FAILED, where+": timeout must not be negative")
		}
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation (got: %v)", field, e.Tag(), e.Value())
	}
}
