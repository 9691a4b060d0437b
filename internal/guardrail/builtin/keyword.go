package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
)

// KeywordFilterConfig configures a keyword filter guardrail.
type KeywordFilterConfig struct {
	Name      string   `mapstructure:"name"`
	Direction string   `mapstructure:"direction"`
	Keywords  []string `mapstructure:"keywords"`
	// Action when a keyword matches: block (default) or warn.
	Action string `mapstructure:"action"`
	// CaseSensitive disables the default case folding.
	CaseSensitive bool `mapstructure:"case_sensitive"`
}

// KeywordFilter blocks or warns on whole-word keyword matches.
type KeywordFilter struct {
	config    KeywordFilterConfig
	name      string
	direction guardrail.Direction
	action    guardrail.Action
	matcher   *regexp.Regexp
}

// NewKeywordFilter creates a keyword filter, failing with a
// ConfigurationError if no keywords are configured.
func NewKeywordFilter(config KeywordFilterConfig) (*KeywordFilter, error) {
	name := config.Name
	if name == "" {
		name = "keyword-filter"
	}

	f := &KeywordFilter{
		config:    config,
		name:      name,
		direction: guardrail.DirectionBoth,
		action:    guardrail.ActionBlock,
	}
	if config.Direction != "" {
		f.direction = guardrail.Direction(config.Direction)
	}
	if config.Action != "" {
		f.action = guardrail.Action(config.Action)
	}

	if violations := f.ValidateConfig(); len(violations) > 0 {
		return nil, guardrail.NewConfigurationError(name, violations...)
	}

	quoted := make([]string, 0, len(config.Keywords))
	for _, kw := range config.Keywords {
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	expr := `\b(?:` + strings.Join(quoted, "|") + `)\b`
	if !config.CaseSensitive {
		expr = "(?i)" + expr
	}
	f.matcher = regexp.MustCompile(expr)

	return f, nil
}

// Name returns the guardrail name.
func (f *KeywordFilter) Name() string { return f.name }

// Capability returns the keyword detection strategy.
func (f *KeywordFilter) Capability() guardrail.Capability { return guardrail.CapabilityKeyword }

// Direction returns which pipeline direction(s) this filter applies to.
func (f *KeywordFilter) Direction() guardrail.Direction { return f.direction }

// Performance declares keyword matching as instant.
func (f *KeywordFilter) Performance() guardrail.PerformanceClass { return guardrail.PerfInstant }

// ValidateConfig checks the keyword list and action.
func (f *KeywordFilter) ValidateConfig() []string {
	var violations []string
	if len(f.config.Keywords) == 0 {
		violations = append(violations, "at least one keyword is required")
	}
	for i, kw := range f.config.Keywords {
		if strings.TrimSpace(kw) == "" {
			violations = append(violations, fmt.Sprintf("keyword %d is empty", i))
		}
	}
	switch guardrail.Action(f.config.Action) {
	case "", guardrail.ActionBlock, guardrail.ActionWarn:
	default:
		violations = append(violations, fmt.Sprintf("unknown action %q", f.config.Action))
	}
	return violations
}

// Analyze matches content against the keyword list.
func (f *KeywordFilter) Analyze(ctx context.Context, content string, conv *conversation.Conversation) (guardrail.Result, error) {
	matches := f.matcher.FindAllString(content, -1)
	if len(matches) == 0 {
		return guardrail.NewAllowResult(f.name), nil
	}

	seen := make(map[string]struct{})
	var unique []string
	for _, m := range matches {
		key := m
		if !f.config.CaseSensitive {
			key = strings.ToLower(m)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}

	reason := fmt.Sprintf("%s matched keyword(s): %s", f.name, strings.Join(unique, ", "))
	if f.action == guardrail.ActionWarn {
		return guardrail.NewWarnResult(f.name, reason, 1.0), nil
	}
	return guardrail.NewBlockResult(f.name, reason, 1.0), nil
}
