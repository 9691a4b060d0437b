package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
)

// PatternRule is one regex rule with the action taken when it matches.
type PatternRule struct {
	// Name identifies the rule in reasons; defaults to the pattern text.
	Name string `mapstructure:"name"`
	// Pattern is the regex to match.
	Pattern string `mapstructure:"pattern"`
	// Action when matched: block, warn, or modify. Defaults to the filter's
	// default action.
	Action string `mapstructure:"action"`
	// Replace is the replacement text for modify rules; defaults to [REDACTED].
	Replace string `mapstructure:"replace"`
}

// PatternFilterConfig configures a pattern filter guardrail.
type PatternFilterConfig struct {
	Name          string        `mapstructure:"name"`
	Direction     string        `mapstructure:"direction"`
	Rules         []PatternRule `mapstructure:"rules"`
	DefaultAction string        `mapstructure:"default_action"`
	// Allowlist patterns exempt matches from every rule.
	Allowlist []string `mapstructure:"allowlist"`
}

// PatternFilter inspects content against regex rules. The most restrictive
// matched action wins; modify rules rewrite matches with their replacement.
type PatternFilter struct {
	config    PatternFilterConfig
	name      string
	direction guardrail.Direction
	rules     []compiledRule
	allowlist *regexp.Regexp
}

type compiledRule struct {
	name    string
	regex   *regexp.Regexp
	action  guardrail.Action
	replace string
}

// NewPatternFilter creates a pattern filter, failing with a
// ConfigurationError if any rule is missing a pattern or fails to compile.
func NewPatternFilter(config PatternFilterConfig) (*PatternFilter, error) {
	name := config.Name
	if name == "" {
		name = "pattern-filter"
	}

	f := &PatternFilter{
		config:    config,
		name:      name,
		direction: guardrail.DirectionBoth,
	}
	if config.Direction != "" {
		f.direction = guardrail.Direction(config.Direction)
	}

	if violations := f.ValidateConfig(); len(violations) > 0 {
		return nil, guardrail.NewConfigurationError(name, violations...)
	}

	defaultAction := guardrail.ActionBlock
	if config.DefaultAction != "" {
		defaultAction = guardrail.Action(config.DefaultAction)
	}

	for _, rule := range config.Rules {
		regex := regexp.MustCompile(rule.Pattern)
		action := defaultAction
		if rule.Action != "" {
			action = guardrail.Action(rule.Action)
		}
		ruleName := rule.Name
		if ruleName == "" {
			ruleName = rule.Pattern
		}
		replace := rule.Replace
		if replace == "" {
			replace = "[REDACTED]"
		}
		f.rules = append(f.rules, compiledRule{
			name:    ruleName,
			regex:   regex,
			action:  action,
			replace: replace,
		})
	}

	if len(config.Allowlist) > 0 {
		f.allowlist = regexp.MustCompile("(?:" + strings.Join(config.Allowlist, "|") + ")")
	}

	return f, nil
}

// Name returns the guardrail name.
func (f *PatternFilter) Name() string { return f.name }

// Capability returns the pattern detection strategy.
func (f *PatternFilter) Capability() guardrail.Capability { return guardrail.CapabilityPattern }

// Direction returns which pipeline direction(s) this filter applies to.
func (f *PatternFilter) Direction() guardrail.Direction { return f.direction }

// Performance declares regex matching as instant.
func (f *PatternFilter) Performance() guardrail.PerformanceClass { return guardrail.PerfInstant }

// ValidateConfig checks rules and allowlist patterns without compiling state.
func (f *PatternFilter) ValidateConfig() []string {
	var violations []string
	if len(f.config.Rules) == 0 {
		violations = append(violations, "at least one rule is required")
	}
	for i, rule := range f.config.Rules {
		if rule.Pattern == "" {
			violations = append(violations, fmt.Sprintf("rule %d: pattern is required", i))
			continue
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			violations = append(violations, fmt.Sprintf("rule %d: invalid pattern: %v", i, err))
		}
		switch guardrail.Action(rule.Action) {
		case "", guardrail.ActionBlock, guardrail.ActionWarn, guardrail.ActionModify:
		default:
			violations = append(violations, fmt.Sprintf("rule %d: unknown action %q", i, rule.Action))
		}
	}
	if f.config.DefaultAction != "" {
		switch guardrail.Action(f.config.DefaultAction) {
		case guardrail.ActionBlock, guardrail.ActionWarn, guardrail.ActionModify:
		default:
			violations = append(violations, fmt.Sprintf("unknown default_action %q", f.config.DefaultAction))
		}
	}
	for i, pattern := range f.config.Allowlist {
		if _, err := regexp.Compile(pattern); err != nil {
			violations = append(violations, fmt.Sprintf("allowlist %d: invalid pattern: %v", i, err))
		}
	}
	return violations
}

// Analyze applies every rule to the content; the most restrictive matched
// action wins and modify rules rewrite their matches.
func (f *PatternFilter) Analyze(ctx context.Context, content string, conv *conversation.Conversation) (guardrail.Result, error) {
	if content == "" {
		return guardrail.NewAllowResult(f.name), nil
	}

	var matched []string
	severest := guardrail.ActionAllow
	modified := content

	for _, rule := range f.rules {
		if !f.matches(rule.regex, content) {
			continue
		}
		matched = append(matched, rule.name)
		if rulePriority(rule.action) > rulePriority(severest) {
			severest = rule.action
		}
		if rule.action == guardrail.ActionModify {
			modified = rule.regex.ReplaceAllStringFunc(modified, func(m string) string {
				if f.allowlist != nil && f.allowlist.MatchString(m) {
					return m
				}
				return rule.replace
			})
		}
	}

	if len(matched) == 0 {
		return guardrail.NewAllowResult(f.name), nil
	}

	reason := fmt.Sprintf("%s matched rule(s): %s", f.name, strings.Join(matched, ", "))
	switch severest {
	case guardrail.ActionBlock:
		return guardrail.NewBlockResult(f.name, reason, 1.0), nil
	case guardrail.ActionModify:
		return guardrail.NewModifyResult(f.name, reason, modified, 1.0), nil
	case guardrail.ActionWarn:
		return guardrail.NewWarnResult(f.name, reason, 1.0), nil
	default:
		return guardrail.NewAllowResult(f.name), nil
	}
}

// rulePriority orders actions for the most-restrictive-wins fold:
// block > modify > warn > allow.
func rulePriority(action guardrail.Action) int {
	switch action {
	case guardrail.ActionBlock:
		return 4
	case guardrail.ActionModify:
		return 3
	case guardrail.ActionWarn:
		return 2
	case guardrail.ActionAllow:
		return 1
	default:
		return 0
	}
}

// matches reports whether the regex matches content outside the allowlist.
func (f *PatternFilter) matches(regex *regexp.Regexp, content string) bool {
	for _, loc := range regex.FindAllStringIndex(content, -1) {
		m := content[loc[0]:loc[1]]
		if f.allowlist != nil && f.allowlist.MatchString(m) {
			continue
		}
		return true
	}
	return false
}
