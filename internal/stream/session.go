package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/virtualsteve-star/stinger-sub001/internal/conversation"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/pipeline"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// State is a streaming session's lifecycle state.
type State string

const (
	StateInitialized State = "initialized"
	StateActive      State = "active"
	StateChecking    State = "checking"
	StateFinalizing  State = "finalizing"
	StateAudited     State = "audited"
	StateTimedOut    State = "timed_out"
	StateAborted     State = "aborted"
)

// Terminal reports whether the state accepts no further updates.
func (s State) Terminal() bool {
	switch s {
	case StateAudited, StateTimedOut, StateAborted:
		return true
	default:
		return false
	}
}

// Session accumulates one in-progress message and re-runs guardrails at
// checkpoints as content arrives.
//
// Each block-mode guardrail keeps its own checkpoint offset: a checkpoint
// evaluation is scoped to the content accumulated since that guardrail's
// last checkpoint, so already-cleared content is never re-scanned.
// Guardrails that declare full-context evaluation are exempt from
// incremental checkpoints and run once over the whole buffer on finish.
type Session struct {
	id   types.ID
	corr types.CorrelationID
	pipe *pipeline.Pipeline
	conv *conversation.Conversation

	mu           sync.Mutex
	buf          strings.Builder
	offsets      map[string]int
	state        State
	blocked      bool
	results      []guardrail.Result
	createdAt    time.Time
	lastActivity time.Time

	// cancelCheck aborts an in-flight checkpoint wait.
	cancelCheck context.CancelFunc
}

func newSession(pipe *pipeline.Pipeline, conv *conversation.Conversation) *Session {
	now := time.Now()
	return &Session{
		id:           types.NewID(),
		corr:         types.NewCorrelationID(),
		pipe:         pipe,
		conv:         conv,
		offsets:      make(map[string]int),
		state:        StateInitialized,
		createdAt:    now,
		lastActivity: now,
	}
}

// ID returns the session id.
func (s *Session) ID() types.ID { return s.id }

// CorrelationID returns the correlation id shared by every audit entry this
// session produces.
func (s *Session) CorrelationID() types.CorrelationID { return s.corr }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Blocked reports whether any checkpoint has produced a blocking verdict.
func (s *Session) Blocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked
}

// Content returns the accumulated buffer.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// checkpointGroup is a set of guardrails due for evaluation over the same
// content delta.
type checkpointGroup struct {
	names  map[string]bool
	offset int
}

// Update appends a chunk to the buffer and runs any due checkpoint
// evaluations. It returns a verdict only when a checkpoint blocks; the
// caller decides whether to continue streaming. A nil verdict means the
// chunk was absorbed without a blocking result.
func (s *Session) Update(ctx context.Context, chunk string) (*pipeline.Verdict, error) {
	s.mu.Lock()
	if err := s.checkUpdatable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.buf.WriteString(chunk)
	s.lastActivity = time.Now()
	s.state = StateActive
	total := s.buf.Len()

	groups := s.dueGroups(total)
	if len(groups) == 0 {
		s.mu.Unlock()
		return nil, nil
	}

	s.state = StateChecking
	content := s.buf.String()
	cctx, cancel := context.WithCancel(ctx)
	s.cancelCheck = cancel
	s.mu.Unlock()
	defer cancel()

	var blockedVerdict *pipeline.Verdict
	for _, group := range groups {
		verdict, err := s.pipe.EvaluateOpts(cctx, content[group.offset:], s.conv, pipeline.EvalOptions{
			CorrelationID: s.corr,
			SessionID:     s.id,
			Only:          group.names,
		})
		if err != nil {
			s.mu.Lock()
			if s.state == StateChecking {
				s.state = StateActive
			}
			s.cancelCheck = nil
			s.mu.Unlock()
			return nil, err
		}

		s.mu.Lock()
		for name := range group.names {
			s.offsets[name] = total
		}
		s.results = append(s.results, verdict.Results...)
		if verdict.Blocked() {
			s.blocked = true
			v := verdict
			blockedVerdict = &v
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	if s.state == StateChecking {
		s.state = StateActive
	}
	s.cancelCheck = nil
	s.mu.Unlock()

	return blockedVerdict, nil
}

// Finish runs the final pass, merges it with prior checkpoint results
// (most severe wins), and transitions to Audited. Monitor-mode guardrails
// observe the full message here; their results arrive in the audit trail
// only.
func (s *Session) Finish(ctx context.Context) (pipeline.Verdict, error) {
	s.mu.Lock()
	if err := s.checkUpdatable(); err != nil {
		s.mu.Unlock()
		return pipeline.Verdict{}, err
	}
	s.state = StateFinalizing
	s.lastActivity = time.Now()
	content := s.buf.String()
	total := s.buf.Len()

	// The final pass covers: full-context and monitor-mode guardrails over
	// the whole buffer, and any block-mode guardrail with an unchecked
	// tail over just that tail. Grouped by offset like checkpoint
	// evaluations, so cleared content is never re-scanned.
	byOffset := make(map[int]map[string]bool)
	addName := func(offset int, name string) {
		if byOffset[offset] == nil {
			byOffset[offset] = make(map[string]bool)
		}
		byOffset[offset][name] = true
	}
	for _, m := range s.pipe.Members() {
		if m.Mode == guardrail.ModeDisabled {
			continue
		}
		name := m.Guardrail.Name()
		if guardrail.RequiresFullContext(m.Guardrail) || m.Mode == guardrail.ModeMonitor {
			addName(0, name)
			continue
		}
		if s.offsets[name] < total {
			addName(s.offsets[name], name)
		}
	}
	groups := make([]checkpointGroup, 0, len(byOffset))
	for offset, names := range byOffset {
		groups = append(groups, checkpointGroup{names: names, offset: offset})
	}
	prior := make([]guardrail.Result, len(s.results))
	copy(prior, s.results)
	priorBlocked := s.blocked
	s.mu.Unlock()

	var finalResults []guardrail.Result
	for _, group := range groups {
		verdict, err := s.pipe.EvaluateOpts(ctx, content[group.offset:], s.conv, pipeline.EvalOptions{
			CorrelationID: s.corr,
			SessionID:     s.id,
			Only:          group.names,
		})
		if err != nil {
			s.mu.Lock()
			s.state = StateActive
			s.mu.Unlock()
			return pipeline.Verdict{}, err
		}
		finalResults = append(finalResults, verdict.Results...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := append(prior, finalResults...)
	final := pipeline.Verdict{
		CorrelationID: s.corr,
		Action:        guardrail.ActionAllow,
		Results:       all,
		Elapsed:       time.Since(s.createdAt),
	}
	for _, r := range all {
		if r.Action.Severity() > final.Action.Severity() {
			final.Action = r.Action
		}
	}
	if priorBlocked {
		final.Action = guardrail.ActionBlock
	}
	if final.Blocked() {
		s.blocked = true
	}

	s.state = StateAudited
	return final, nil
}

// Abort terminates the session, cancelling any in-flight checkpoint wait.
// Already-dispatched monitor tasks still complete and audit normally.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = StateAborted
	if s.cancelCheck != nil {
		s.cancelCheck()
		s.cancelCheck = nil
	}
}

// expireIfIdle transitions an idle session to TimedOut. Returns true if the
// session is (now) timed out.
func (s *Session) expireIfIdle(window time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTimedOut {
		return true
	}
	if s.state.Terminal() || s.state == StateChecking || s.state == StateFinalizing {
		return false
	}
	if now.Sub(s.lastActivity) > window {
		s.state = StateTimedOut
		return true
	}
	return false
}

// checkUpdatable enforces lifecycle rules for update/finish. Callers hold mu.
func (s *Session) checkUpdatable() error {
	switch s.state {
	case StateTimedOut:
		return types.NewError(types.SESSION_EXPIRED, "session "+s.id.String()+" timed out")
	case StateAudited:
		return types.NewError(types.SESSION_FINISHED, "session "+s.id.String()+" already finished")
	case StateAborted:
		return types.NewError(types.SESSION_FINISHED, "session "+s.id.String()+" aborted")
	default:
		return nil
	}
}

// dueGroups collects block-mode guardrails whose checkpoint boundary was
// crossed by the latest chunk, grouped by shared checkpoint offset so each
// group evaluates one delta. Callers hold mu.
func (s *Session) dueGroups(total int) []checkpointGroup {
	content := s.buf.String()
	byOffset := make(map[int]map[string]bool)

	for _, m := range s.pipe.Members() {
		if m.Mode != guardrail.ModeBlock {
			continue
		}
		if guardrail.RequiresFullContext(m.Guardrail) {
			continue
		}
		name := m.Guardrail.Name()
		offset := s.offsets[name]
		if offset >= total {
			continue
		}
		boundary := boundaryFor(m.Guardrail.Performance())
		if !boundary.crossed(content[offset:]) {
			continue
		}
		if byOffset[offset] == nil {
			byOffset[offset] = make(map[string]bool)
		}
		byOffset[offset][name] = true
	}

	groups := make([]checkpointGroup, 0, len(byOffset))
	for offset, names := range byOffset {
		groups = append(groups, checkpointGroup{names: names, offset: offset})
	}
	return groups
}
