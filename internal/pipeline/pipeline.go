package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/observability"
	"github.com/virtualsteve-star/stinger-sub001/internal/scheduler"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// Member is one guardrail registered in a pipeline together with its
// resolved execution mode and failure policy.
type Member struct {
	Guardrail guardrail.Guardrail
	Mode      guardrail.ExecutionMode
	OnError   guardrail.OnErrorPolicy
	Timeout   time.Duration
}

// MemberConfig carries the per-deployment settings applied when a guardrail
// is added to a pipeline.
type MemberConfig struct {
	// Disabled excludes the guardrail from evaluation without removing it.
	Disabled bool
	// Override replaces the performance-class default execution mode.
	Override *guardrail.ModeOverride
	// OnError resolves failures and timeouts; empty means allow-with-warning.
	OnError guardrail.OnErrorPolicy
	// Timeout bounds one evaluation; zero uses the scheduler default.
	Timeout time.Duration
}

// Pipeline holds an ordered list of guardrails for one direction and
// produces one verdict per logical message.
type Pipeline struct {
	direction guardrail.Direction
	members   []Member
	names     map[string]struct{}
	sched     *scheduler.Scheduler
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates an empty pipeline for the given direction, dispatching through
// the given scheduler.
func New(direction guardrail.Direction, sched *scheduler.Scheduler) *Pipeline {
	return &Pipeline{
		direction: direction,
		names:     make(map[string]struct{}),
		sched:     sched,
		logger:    slog.Default(),
	}
}

// WithTracer sets the OpenTelemetry tracer for the pipeline.
func (p *Pipeline) WithTracer(tracer trace.Tracer) *Pipeline {
	p.tracer = tracer
	return p
}

// WithLogger sets the logger for the pipeline.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// Direction returns the direction this pipeline was built for.
func (p *Pipeline) Direction() guardrail.Direction {
	return p.direction
}

// Members returns a copy of the registered members in order.
func (p *Pipeline) Members() []Member {
	out := make([]Member, len(p.members))
	copy(out, p.members)
	return out
}

// Add registers a guardrail. It fails if the guardrail's configuration is
// invalid, its name is already taken, its direction does not apply, or its
// mode override is rejected. A guardrail that fails Add never runs.
func (p *Pipeline) Add(g guardrail.Guardrail, cfg MemberConfig) error {
	if violations := g.ValidateConfig(); len(violations) > 0 {
		return guardrail.NewConfigurationError(g.Name(), violations...)
	}

	if _, exists := p.names[g.Name()]; exists {
		return types.NewError(types.PIPELINE_DUPLICATE_NAME,
			"guardrail name already registered: "+g.Name())
	}

	if !g.Direction().AppliesTo(p.direction) {
		return types.NewError(types.PIPELINE_WRONG_DIRECTION,
			"guardrail "+g.Name()+" does not apply to "+string(p.direction)+" pipelines")
	}

	mode := guardrail.ModeDisabled
	if !cfg.Disabled {
		resolved, err := guardrail.ResolveMode(g.Performance(), cfg.Override)
		if err != nil {
			return err
		}
		mode = resolved
	}

	onError, err := guardrail.ParseOnErrorPolicy(string(cfg.OnError))
	if err != nil {
		return err
	}

	p.names[g.Name()] = struct{}{}
	p.members = append(p.members, Member{
		Guardrail: g,
		Mode:      mode,
		OnError:   onError,
		Timeout:   cfg.Timeout,
	})
	return nil
}

// Evaluate runs the pipeline against one complete message and returns its
// verdict. A fresh correlation id is generated; use the verdict's
// CorrelationID to join audit entries, including monitor-mode results that
// arrive later.
func (p *Pipeline) Evaluate(ctx context.Context, content string, conv *conversation.Conversation) (Verdict, error) {
	return p.EvaluateOpts(ctx, content, conv, EvalOptions{})
}

// EvalOptions scopes an evaluation. The zero value evaluates every enabled
// member under a fresh correlation id.
type EvalOptions struct {
	// CorrelationID correlates this evaluation's audit entries; zero
	// generates a new one.
	CorrelationID types.CorrelationID
	// SessionID tags audit entries with a streaming session.
	SessionID types.ID
	// Only restricts evaluation to the named guardrails (nil means all).
	Only map[string]bool
}

// EvaluateOpts runs the pipeline with explicit scoping. Streaming sessions
// use it to drive checkpoint evaluations against content deltas while
// keeping one correlation id per logical message.
func (p *Pipeline) EvaluateOpts(ctx context.Context, content string, conv *conversation.Conversation, opts EvalOptions) (Verdict, error) {
	corr := opts.CorrelationID
	if corr.IsZero() {
		corr = types.NewCorrelationID()
	}

	var span trace.Span
	if p.tracer != nil {
		ctx, span = p.tracer.Start(ctx, "pipeline.evaluate",
			trace.WithAttributes(
				attribute.String("pipeline.direction", string(p.direction)),
				attribute.String("pipeline.correlation_id", corr.String()),
			),
		)
		defer span.End()
	}

	start := time.Now()

	var blockTasks []scheduler.Task
	var monitorTasks []scheduler.Task
	for _, m := range p.members {
		if m.Mode == guardrail.ModeDisabled {
			continue
		}
		if opts.Only != nil && !opts.Only[m.Guardrail.Name()] {
			continue
		}
		task := scheduler.Task{
			Guardrail:     m.Guardrail,
			Content:       content,
			Conversation:  conv,
			CorrelationID: corr,
			SessionID:     opts.SessionID,
			OnError:       m.OnError,
			Timeout:       m.Timeout,
		}
		if m.Mode == guardrail.ModeBlock {
			blockTasks = append(blockTasks, task)
		} else {
			monitorTasks = append(monitorTasks, task)
		}
	}

	// Monitor tasks are fire-and-forget: queued before the blocking wait so a
	// slow verdict does not delay their audit entries.
	for _, task := range monitorTasks {
		p.sched.SubmitMonitor(task)
	}

	results, err := p.sched.RunBlocking(ctx, blockTasks)
	if err != nil {
		return Verdict{}, err
	}

	verdict, err := combine(corr, results, time.Since(start))
	if err != nil {
		return Verdict{}, err
	}

	if span != nil {
		span.SetAttributes(attribute.String("pipeline.action", string(verdict.Action)))
	}
	if verdict.Blocked() {
		// Reasons quote matched content, so they go to the audit trail
		// but never into log output.
		observability.WithTrace(ctx, p.logger).WarnContext(ctx, "pipeline blocked message",
			observability.RedactArgs([]any{
				"direction", string(p.direction),
				"correlation_id", corr.String(),
				"reasons", verdict.Reasons(),
			})...)
	}

	return verdict, nil
}
