package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/virtualsteve-star/stinger-sub001/internal/audit"
	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// stubGuardrail is a scriptable guardrail for scheduler tests.
type stubGuardrail struct {
	name   string
	action guardrail.Action
	reason string
	delay  time.Duration
	err    error
	gate   chan struct{}
	calls  atomic.Int32
}

func (s *stubGuardrail) Name() string                           { return s.name }
func (s *stubGuardrail) Capability() guardrail.Capability       { return guardrail.CapabilityPattern }
func (s *stubGuardrail) Direction() guardrail.Direction         { return guardrail.DirectionBoth }
func (s *stubGuardrail) Performance() guardrail.PerformanceClass { return guardrail.PerfInstant }
func (s *stubGuardrail) ValidateConfig() []string               { return nil }

func (s *stubGuardrail) Analyze(ctx context.Context, content string, conv *conversation.Conversation) (guardrail.Result, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return guardrail.Result{}, ctx.Err()
		}
	}
	if s.err != nil {
		return guardrail.Result{}, s.err
	}
	switch s.action {
	case guardrail.ActionBlock:
		return guardrail.NewBlockResult(s.name, s.reason, 1.0), nil
	case guardrail.ActionWarn:
		return guardrail.NewWarnResult(s.name, s.reason, 0.5), nil
	default:
		return guardrail.NewAllowResult(s.name), nil
	}
}

func task(g guardrail.Guardrail, corr types.CorrelationID) Task {
	return Task{
		Guardrail:     g,
		Content:       "some content",
		CorrelationID: corr,
		OnError:       guardrail.OnErrorWarn,
	}
}

func waitForEntries(t *testing.T, trail *audit.Trail, corr types.CorrelationID, n int) []audit.Entry {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		entries := trail.Query(corr)
		if len(entries) >= n {
			return entries
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d audit entries, have %d", n, len(trail.Query(corr)))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunBlocking_WaitsForAllAndPreservesOrder(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail, WithTracer(noop.NewTracerProvider().Tracer("test")))
	defer s.Close()

	corr := types.NewCorrelationID()
	fast := &stubGuardrail{name: "fast-allow"}
	slow := &stubGuardrail{name: "slow-block", action: guardrail.ActionBlock, reason: "bad", delay: 30 * time.Millisecond}

	results, err := s.RunBlocking(context.Background(), []Task{task(slow, corr), task(fast, corr)})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "slow-block", results[0].Guardrail)
	assert.Equal(t, guardrail.ActionBlock, results[0].Action)
	assert.Equal(t, "fast-allow", results[1].Guardrail)
	assert.Equal(t, guardrail.ActionAllow, results[1].Action)
	assert.GreaterOrEqual(t, results[0].Elapsed, 30*time.Millisecond)

	entries := trail.Query(corr)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, guardrail.ModeBlock, e.Mode)
		assert.False(t, e.WouldHaveBlocked)
	}
}

func TestRunBlocking_TimeoutResolvedPerPolicy(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail, WithDefaultTimeout(20*time.Millisecond))
	defer s.Close()

	corr := types.NewCorrelationID()
	hung := &stubGuardrail{name: "hung", delay: 5 * time.Second}

	results, err := s.RunBlocking(context.Background(), []Task{task(hung, corr)})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Default policy: allow with warning, never silently block.
	assert.Equal(t, guardrail.ActionWarn, results[0].Action)
	assert.Contains(t, results[0].Reason, "timeout")
}

func TestRunBlocking_TimeoutWithBlockPolicy(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail, WithDefaultTimeout(20*time.Millisecond))
	defer s.Close()

	corr := types.NewCorrelationID()
	hung := &stubGuardrail{name: "hung", delay: 5 * time.Second}
	tk := task(hung, corr)
	tk.OnError = guardrail.OnErrorBlock

	results, err := s.RunBlocking(context.Background(), []Task{tk})
	require.NoError(t, err)
	assert.Equal(t, guardrail.ActionBlock, results[0].Action)
}

func TestRunBlocking_FailureIsolation(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail)
	defer s.Close()

	corr := types.NewCorrelationID()
	failing := &stubGuardrail{name: "failing", err: errors.New("detector exploded")}
	healthy := &stubGuardrail{name: "healthy", action: guardrail.ActionBlock, reason: "caught it"}

	results, err := s.RunBlocking(context.Background(), []Task{task(failing, corr), task(healthy, corr)})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, guardrail.ActionWarn, results[0].Action)
	assert.Contains(t, results[0].Reason, "detector exploded")
	assert.Equal(t, guardrail.ActionBlock, results[1].Action)
	assert.Equal(t, int32(1), healthy.calls.Load())
}

func TestRunBlocking_CallerCancellation(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail)
	defer s.Close()

	corr := types.NewCorrelationID()
	hung := &stubGuardrail{name: "hung", delay: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	results, err := s.RunBlocking(ctx, []Task{task(hung, corr)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, results)
}

func TestSubmitMonitor_AuditsWouldHaveBlocked(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail)
	defer s.Close()

	corr := types.NewCorrelationID()
	judge := &stubGuardrail{name: "toxicity-judge", action: guardrail.ActionBlock, reason: "toxic"}

	s.SubmitMonitor(task(judge, corr))

	entries := waitForEntries(t, trail, corr, 1)
	assert.Equal(t, guardrail.ModeMonitor, entries[0].Mode)
	assert.True(t, entries[0].WouldHaveBlocked)
	assert.Equal(t, "toxicity-judge", entries[0].Guardrail)
}

func TestSubmitMonitor_SaturationDropsOldestPending(t *testing.T) {
	trail := audit.NewTrail()
	gate := make(chan struct{})
	s := New(trail, WithMonitorWorkers(1), WithMonitorQueueSize(2))

	blocker := &stubGuardrail{name: "blocker", gate: gate}
	oldest := &stubGuardrail{name: "oldest"}
	second := &stubGuardrail{name: "second"}
	third := &stubGuardrail{name: "third"}

	corr := types.NewCorrelationID()

	// Occupy the single worker, then fill the queue.
	s.SubmitMonitor(task(blocker, corr))
	for {
		if blocker.calls.Load() == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	s.SubmitMonitor(task(oldest, corr))
	s.SubmitMonitor(task(second, corr))

	// Queue is at capacity; this evicts "oldest" without blocking the caller.
	done := make(chan struct{})
	go func() {
		s.SubmitMonitor(task(third, corr))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SubmitMonitor blocked on a saturated queue")
	}

	close(gate)
	s.Close()

	entries := trail.Query(corr)
	var drops, ran []string
	for _, e := range entries {
		if e.Dropped {
			drops = append(drops, e.Guardrail)
			assert.Contains(t, e.Result.Reason, string(types.SCHEDULER_SATURATED))
		} else {
			ran = append(ran, e.Guardrail)
		}
	}
	assert.Equal(t, []string{"oldest"}, drops)
	assert.ElementsMatch(t, []string{"blocker", "second", "third"}, ran)
	assert.Zero(t, oldest.calls.Load())
}

func TestSubmitMonitor_AfterCloseAuditsDrop(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail, WithMonitorWorkers(1))
	s.Close()

	corr := types.NewCorrelationID()
	s.SubmitMonitor(task(&stubGuardrail{name: "late"}, corr))

	entries := trail.Query(corr)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Dropped)
	assert.Contains(t, entries[0].Result.Reason, string(types.SCHEDULER_CLOSED))
}

func TestMonitorPool_TasksCompleteAfterClose(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail, WithMonitorWorkers(2))

	corr := types.NewCorrelationID()
	slow := &stubGuardrail{name: "slow", delay: 20 * time.Millisecond}
	s.SubmitMonitor(task(slow, corr))
	s.SubmitMonitor(task(slow, corr))

	// Close drains queued work before stopping workers.
	s.Close()
	assert.Len(t, trail.Query(corr), 2)
}

func TestRunBlocking_SessionTagging(t *testing.T) {
	trail := audit.NewTrail()
	s := New(trail)
	defer s.Close()

	corr := types.NewCorrelationID()
	sessionID := types.NewID()
	tk := task(&stubGuardrail{name: "tagged"}, corr)
	tk.SessionID = sessionID

	_, err := s.RunBlocking(context.Background(), []Task{tk})
	require.NoError(t, err)

	entries := trail.BySession(sessionID)
	require.Len(t, entries, 1)
	assert.Equal(t, corr, entries[0].CorrelationID)
}
