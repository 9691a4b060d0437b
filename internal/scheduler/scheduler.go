package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/virtualsteve-star/stinger-sub001/internal/audit"
	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/observability"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

const (
	defaultBlockConcurrency = 8
	defaultMonitorWorkers   = 4
	defaultMonitorQueueSize = 64
	defaultTimeout          = 5 * time.Second
)

// Task is one guardrail evaluation to dispatch.
type Task struct {
	Guardrail     guardrail.Guardrail
	Content       string
	Conversation  *conversation.Conversation
	CorrelationID types.CorrelationID
	SessionID     types.ID
	OnError       guardrail.OnErrorPolicy
	Timeout       time.Duration
}

// Scheduler dispatches guardrails either inline (block mode) or onto a
// bounded background worker pool (monitor mode).
//
// Block-mode guardrails for one message run concurrently with each other,
// bounded by a concurrency limit and a per-guardrail hard timeout; the
// scheduler waits for all of them before returning, never producing a
// partial result set. Monitor-mode tasks are queued fire-and-forget and
// write only to the audit trail.
type Scheduler struct {
	trail  *audit.Trail
	logger *slog.Logger
	tracer trace.Tracer

	blockConcurrency int
	timeout          time.Duration

	pool *monitorPool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithTracer enables OpenTelemetry spans around guardrail invocations.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = tracer }
}

// WithBlockConcurrency caps how many block-mode guardrails of one message
// run concurrently.
func WithBlockConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.blockConcurrency = n
		}
	}
}

// WithDefaultTimeout sets the per-guardrail timeout used when a task does not
// carry its own.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMonitorWorkers sets the number of monitor pool workers.
func WithMonitorWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.pool.workers = n
		}
	}
}

// WithMonitorQueueSize caps the monitor pool's pending queue. Beyond the cap
// the oldest queued-but-not-started task is dropped and audited.
func WithMonitorQueueSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.pool.queueCap = n
		}
	}
}

// New creates a Scheduler writing to the given audit trail and starts its
// monitor worker pool.
func New(trail *audit.Trail, opts ...Option) *Scheduler {
	s := &Scheduler{
		trail:            trail,
		logger:           slog.Default(),
		blockConcurrency: defaultBlockConcurrency,
		timeout:          defaultTimeout,
	}
	s.pool = newMonitorPool(s, defaultMonitorWorkers, defaultMonitorQueueSize)
	for _, opt := range opts {
		opt(s)
	}
	s.pool.start()
	return s
}

// RunBlocking evaluates all block-mode tasks for one message and waits for
// every one of them to complete or time out. Each result is audited
// immediately. Results preserve task order.
//
// A per-guardrail failure or timeout never aborts siblings; it is resolved to
// a result via the task's on_error policy. Caller cancellation aborts the
// wait and returns ctx.Err() — a cancellation, not a security verdict.
func (s *Scheduler) RunBlocking(ctx context.Context, tasks []Task) ([]guardrail.Result, error) {
	results := make([]guardrail.Result, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.blockConcurrency)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results[i] = s.runOne(gctx, task)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		// Caller cancelled mid-wait; partial results are discarded.
		return nil, err
	}

	for i := range results {
		entry := audit.NewEntry(tasks[i].CorrelationID, guardrail.ModeBlock, results[i])
		if !tasks[i].SessionID.IsZero() {
			entry = entry.WithSession(tasks[i].SessionID)
		}
		s.trail.Record(ctx, entry)
	}

	return results, nil
}

// SubmitMonitor queues a monitor-mode task for asynchronous evaluation. The
// call never blocks the caller: a saturated queue drops its oldest pending
// task (audited as a drop) to admit the new one.
func (s *Scheduler) SubmitMonitor(task Task) {
	s.pool.submit(task)
}

// Close stops the monitor pool after in-flight and queued tasks complete.
func (s *Scheduler) Close() {
	s.pool.close()
}

// runOne executes a single guardrail with a hard timeout, resolving failures
// per the task's on_error policy.
func (s *Scheduler) runOne(ctx context.Context, task Task) guardrail.Result {
	name := task.Guardrail.Name()

	timeout := task.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var span trace.Span
	if s.tracer != nil {
		tctx, span = s.tracer.Start(tctx, "guardrail.analyze",
			trace.WithAttributes(
				attribute.String("guardrail.name", name),
				attribute.String("guardrail.capability", string(task.Guardrail.Capability())),
			),
		)
	}

	start := time.Now()
	result := s.analyze(tctx, task, timeout)
	result = result.WithElapsed(time.Since(start))

	if span != nil {
		span.SetAttributes(
			attribute.String("guardrail.action", string(result.Action)),
			attribute.String("guardrail.reason", result.Reason),
		)
		span.End()
	}

	return result
}

// analyze runs the guardrail in its own goroutine so a check that ignores
// context cancellation still cannot hold up the verdict past its bound.
func (s *Scheduler) analyze(ctx context.Context, task Task, timeout time.Duration) guardrail.Result {
	name := task.Guardrail.Name()

	type outcome struct {
		result guardrail.Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := task.Guardrail.Analyze(ctx, task.Content, task.Conversation)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			observability.WithTrace(ctx, s.logger).WarnContext(ctx, "guardrail failed",
				observability.RedactArgs([]any{
					"guardrail", name,
					"on_error", string(task.OnError),
					"error", out.err,
				})...)
			return task.OnError.Resolve(name, out.err)
		}
		out.result.Guardrail = name
		return out.result

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			timeoutErr := guardrail.NewTimeoutError(name, timeout)
			observability.WithTrace(ctx, s.logger).WarnContext(ctx, "guardrail timed out",
				"guardrail", name,
				"timeout", timeout,
				"on_error", string(task.OnError),
			)
			return task.OnError.Resolve(name, timeoutErr)
		}
		// Cancelled by the caller; the surrounding wait surfaces ctx.Err().
		return task.OnError.Resolve(name, ctx.Err())
	}
}
