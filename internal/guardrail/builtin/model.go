package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"

	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// ModelJudgeConfig configures a model-backed classifier guardrail.
type ModelJudgeConfig struct {
	Name      string `mapstructure:"name"`
	Direction string `mapstructure:"direction"`
	// Criterion is the policy the judge evaluates, e.g. "prompt injection"
	// or "toxic or abusive language".
	Criterion string `mapstructure:"criterion"`
	// Threshold is the confidence at or above which a flagged result blocks;
	// flagged results below it warn. Defaults to 0.8.
	Threshold float64 `mapstructure:"threshold"`
	// RatePerSecond caps classifier calls client-side; zero disables limiting.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// ModelJudge asks an external language model whether content violates a
// criterion. It declares itself slow (network round trip) and requires
// full-message context: incremental checkpoint deltas are not meaningful to
// a judgement over the whole message.
type ModelJudge struct {
	config    ModelJudgeConfig
	name      string
	direction guardrail.Direction
	model     llms.Model
	limiter   *rate.Limiter
}

var judgeResponse = regexp.MustCompile(`(?i)flagged:\s*(yes|no)(?:.*?confidence:\s*([0-9.]+))?(?:.*?reason:\s*(.+))?`)

// NewModelJudge creates a model-backed guardrail over the given client.
// The client carries its own credentials; factories obtain them from a
// secrets accessor.
func NewModelJudge(config ModelJudgeConfig, model llms.Model) (*ModelJudge, error) {
	name := config.Name
	if name == "" {
		name = "model-judge"
	}
	if config.Threshold == 0 {
		config.Threshold = 0.8
	}

	j := &ModelJudge{
		config:    config,
		name:      name,
		direction: guardrail.DirectionBoth,
		model:     model,
	}
	if config.Direction != "" {
		j.direction = guardrail.Direction(config.Direction)
	}

	if model == nil {
		return nil, guardrail.NewConfigurationError(name, "model client is required")
	}
	if violations := j.ValidateConfig(); len(violations) > 0 {
		return nil, guardrail.NewConfigurationError(name, violations...)
	}

	if config.RatePerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		j.limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), burst)
	}

	return j, nil
}

// Name returns the guardrail name.
func (j *ModelJudge) Name() string { return j.name }

// Capability returns the model-backed detection strategy.
func (j *ModelJudge) Capability() guardrail.Capability { return guardrail.CapabilityModel }

// Direction returns which pipeline direction(s) this judge applies to.
func (j *ModelJudge) Direction() guardrail.Direction { return j.direction }

// Performance declares a classifier round trip as slow, so the judge runs in
// monitor mode unless a deployment overrides it.
func (j *ModelJudge) Performance() guardrail.PerformanceClass { return guardrail.PerfSlow }

// RequiresFullContext marks the judge as needing the whole message; streaming
// sessions re-run it against the full buffer on finish.
func (j *ModelJudge) RequiresFullContext() bool { return true }

// ValidateConfig checks the criterion and threshold.
func (j *ModelJudge) ValidateConfig() []string {
	var violations []string
	if strings.TrimSpace(j.config.Criterion) == "" {
		violations = append(violations, "criterion is required")
	}
	if j.config.Threshold < 0 || j.config.Threshold > 1 {
		violations = append(violations, "threshold must be within [0,1]")
	}
	if j.config.RatePerSecond < 0 {
		violations = append(violations, "rate_per_second must not be negative")
	}
	return violations
}

// Analyze sends the content to the classifier and maps its judgement to a
// result: flagged at or above the threshold blocks, below it warns.
func (j *ModelJudge) Analyze(ctx context.Context, content string, conv *conversation.Conversation) (guardrail.Result, error) {
	if j.limiter != nil {
		if err := j.limiter.Wait(ctx); err != nil {
			return guardrail.Result{}, types.WrapError(types.GUARDRAIL_EXECUTION,
				"rate limiter wait aborted", err)
		}
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, j.model, j.prompt(content, conv))
	if err != nil {
		return guardrail.Result{}, types.WrapError(types.GUARDRAIL_EXECUTION,
			"classifier call failed", err)
	}

	flagged, confidence, reason := j.parse(response)
	if !flagged {
		return guardrail.NewAllowResult(j.name), nil
	}

	fullReason := fmt.Sprintf("%s flagged content (%s): %s", j.name, j.config.Criterion, reason)
	if confidence >= j.config.Threshold {
		return guardrail.NewBlockResult(j.name, fullReason, confidence), nil
	}
	return guardrail.NewWarnResult(j.name, fullReason, confidence), nil
}

// prompt builds the classifier request, including recent conversation turns
// when available for multi-turn criteria.
func (j *ModelJudge) prompt(content string, conv *conversation.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a content policy classifier. Decide whether the message below contains %s.\n", j.config.Criterion)
	b.WriteString("Respond on a single line in exactly this format:\n")
	b.WriteString("flagged: yes|no, confidence: <0.0-1.0>, reason: <short explanation>\n\n")

	if conv != nil && conv.Len() > 0 {
		b.WriteString("Conversation so far:\n")
		turns := conv.Turns()
		// Cap the transcript to keep the request bounded.
		if len(turns) > 8 {
			turns = turns[len(turns)-8:]
		}
		for _, turn := range turns {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Message:\n%s\n", content)
	return b.String()
}

// parse extracts the judgement from the classifier response. Unparseable
// responses are treated as not flagged; the raw text is preserved as reason.
func (j *ModelJudge) parse(response string) (flagged bool, confidence float64, reason string) {
	m := judgeResponse.FindStringSubmatch(response)
	if m == nil {
		return false, 0, ""
	}
	flagged = strings.EqualFold(m[1], "yes")
	confidence = 1.0
	if m[2] != "" {
		if parsed, err := strconv.ParseFloat(m[2], 64); err == nil && parsed >= 0 && parsed <= 1 {
			confidence = parsed
		}
	}
	reason = strings.TrimSpace(m[3])
	if reason == "" {
		reason = "classifier flagged content"
	}
	return flagged, confidence, reason
}
