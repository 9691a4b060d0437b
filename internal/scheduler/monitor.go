package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/virtualsteve-star/stinger-sub001/internal/audit"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// monitorPool runs monitor-mode tasks on a fixed set of workers with a
// bounded pending queue.
//
// The queue, not a channel, holds pending tasks so that saturation can evict
// the oldest queued-but-not-started task instead of blocking or rejecting
// the caller. Dropped tasks are audited. Tasks already picked up by a worker
// always run to completion, even if the originating request or session is
// long gone.
type monitorPool struct {
	scheduler *Scheduler

	workers  int
	queueCap int

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Task
	closed  bool

	wg sync.WaitGroup
}

func newMonitorPool(s *Scheduler, workers, queueCap int) *monitorPool {
	p := &monitorPool{
		scheduler: s,
		workers:   workers,
		queueCap:  queueCap,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *monitorPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// submit enqueues a task, evicting the oldest pending task when the queue is
// at capacity. Never blocks.
func (p *monitorPool) submit(task Task) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.auditDrop(task, types.NewError(types.SCHEDULER_CLOSED,
			"scheduler shut down before the task could run"))
		return
	}

	var dropped *Task
	if len(p.pending) >= p.queueCap {
		oldest := p.pending[0]
		p.pending = p.pending[1:]
		dropped = &oldest
	}
	p.pending = append(p.pending, task)
	p.mu.Unlock()
	p.cond.Signal()

	if dropped != nil {
		p.auditDrop(*dropped, types.NewError(types.SCHEDULER_SATURATED,
			"monitor queue full, oldest pending task evicted"))
	}
}

func (p *monitorPool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.pending) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.pending) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		task := p.pending[0]
		p.pending = p.pending[1:]
		p.mu.Unlock()

		p.run(task)
	}
}

// run executes one monitor task with its own lifetime, detached from any
// caller context, and writes the outcome to the audit trail.
func (p *monitorPool) run(task Task) {
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = p.scheduler.timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	result, err := task.Guardrail.Analyze(ctx, task.Content, task.Conversation)
	if err != nil {
		result = task.OnError.Resolve(task.Guardrail.Name(), err)
	}
	result.Guardrail = task.Guardrail.Name()
	result = result.WithElapsed(time.Since(start))

	entry := audit.NewEntry(task.CorrelationID, guardrail.ModeMonitor, result)
	if !task.SessionID.IsZero() {
		entry = entry.WithSession(task.SessionID)
	}
	p.scheduler.trail.Record(context.Background(), entry)
}

func (p *monitorPool) auditDrop(task Task, cause error) {
	entry := audit.NewDropEntry(task.CorrelationID, task.Guardrail.Name(), cause)
	if !task.SessionID.IsZero() {
		entry = entry.WithSession(task.SessionID)
	}
	p.scheduler.trail.Record(context.Background(), entry)
	p.scheduler.logger.Warn("monitor task dropped",
		"guardrail", task.Guardrail.Name(),
		"correlation_id", task.CorrelationID.String(),
		"error", cause,
	)
}

// close drains the queue and stops the workers.
func (p *monitorPool) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}
