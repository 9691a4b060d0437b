package main

import (
	"context"
	"log/slog"
	"os"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/virtualsteve-star/stinger-sub001/internal/audit"
	"github.com/virtualsteve-star/stinger-sub001/internal/config"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail/builtin"
	"github.com/virtualsteve-star/stinger-sub001/internal/observability"
	"github.com/virtualsteve-star/stinger-sub001/internal/pipeline"
	"github.com/virtualsteve-star/stinger-sub001/internal/scheduler"
	"github.com/virtualsteve-star/stinger-sub001/internal/secrets"
	"github.com/virtualsteve-star/stinger-sub001/internal/stream"
)

// app wires the configured guardrail pipelines, scheduler, and audit
// trail for one CLI invocation.
type app struct {
	logger   *slog.Logger
	tracing  *sdktrace.TracerProvider
	trail    *audit.Trail
	sched    *scheduler.Scheduler
	input    *pipeline.Pipeline
	output   *pipeline.Pipeline
	sessions *stream.Manager
	sink     *audit.SQLiteSink
}

func newApp(cfg *config.Config) (*app, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(os.Stderr, level, cfg.Logging.Format)

	tp, err := observability.NewTracerProvider(context.Background(), "stinger")
	if err != nil {
		return nil, err
	}
	tracer := tp.Tracer("stinger")

	trailOpts := []audit.TrailOption{audit.WithLogger(logger)}
	var sink *audit.SQLiteSink
	if cfg.Audit.SQLitePath != "" {
		s, err := audit.NewSQLiteSink(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, err
		}
		sink = s
		trailOpts = append(trailOpts, audit.WithSink(s))
	}
	trail := audit.NewTrail(trailOpts...)

	sched := scheduler.New(trail,
		scheduler.WithLogger(logger),
		scheduler.WithBlockConcurrency(cfg.Scheduler.BlockConcurrency),
		scheduler.WithDefaultTimeout(cfg.Scheduler.DefaultTimeout),
		scheduler.WithMonitorWorkers(cfg.Scheduler.MonitorWorkers),
		scheduler.WithMonitorQueueSize(cfg.Scheduler.MonitorQueueSize),
		scheduler.WithTracer(tracer),
	)

	factory := builtin.NewFactory(secrets.EnvAccessor{})

	input, err := buildPipeline(guardrail.DirectionInput, cfg.Input, factory, sched, logger, tracer)
	if err != nil {
		sched.Close()
		return nil, err
	}
	output, err := buildPipeline(guardrail.DirectionOutput, cfg.Output, factory, sched, logger, tracer)
	if err != nil {
		sched.Close()
		return nil, err
	}

	sessions := stream.NewManager(output,
		stream.WithIdleTimeout(cfg.Streaming.IdleTimeout),
		stream.WithJanitorInterval(cfg.Streaming.JanitorInterval),
		stream.WithManagerLogger(logger),
	)

	return &app{
		logger:   logger,
		tracing:  tp,
		trail:    trail,
		sched:    sched,
		input:    input,
		output:   output,
		sessions: sessions,
		sink:     sink,
	}, nil
}

func buildPipeline(direction guardrail.Direction, configs []builtin.GuardrailConfig, factory *builtin.Factory, sched *scheduler.Scheduler, logger *slog.Logger, tracer trace.Tracer) (*pipeline.Pipeline, error) {
	p := pipeline.New(direction, sched).WithLogger(logger).WithTracer(tracer)
	for _, gc := range configs {
		g, err := factory.Build(gc)
		if err != nil {
			return nil, err
		}
		override, err := gc.Override()
		if err != nil {
			return nil, err
		}
		onError, err := guardrail.ParseOnErrorPolicy(gc.OnError)
		if err != nil {
			return nil, err
		}
		member := pipeline.MemberConfig{
			Disabled: !gc.IsEnabled(),
			Override: override,
			OnError:  onError,
			Timeout:  gc.Timeout,
		}
		if err := p.Add(g, member); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// pipelineFor returns the pipeline for a direction name.
func (r *app) pipelineFor(direction string) (*pipeline.Pipeline, error) {
	d, err := guardrail.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	if d == guardrail.DirectionInput {
		return r.input, nil
	}
	return r.output, nil
}

// close shuts everything down, draining pending monitor work.
func (r *app) close() {
	r.sessions.Close()
	r.sched.Close()
	if r.sink != nil {
		if err := r.sink.Close(); err != nil {
			r.logger.Warn("failed to close audit sink", "error", err)
		}
	}
	if err := observability.ShutdownTracing(context.Background(), r.tracing); err != nil {
		r.logger.Warn("failed to shut down tracing", "error", err)
	}
}
