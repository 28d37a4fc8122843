// Package scheduler implements the single-goroutine driver that walks
// the active set of targets from Pending to a terminal phase, dispatches
// builds to worker goroutines, and reacts to filesystem invalidations.
package scheduler

import (
	"context"
	"sync"

	"github.com/conneroisu/runloop/internal/fingerprint"
	"github.com/conneroisu/runloop/internal/graph"
	"github.com/conneroisu/runloop/internal/logging"
	"github.com/conneroisu/runloop/internal/metrics"
	"github.com/conneroisu/runloop/internal/runner"
	"github.com/conneroisu/runloop/internal/supervisor"
)

// Phase is a target's position in the scheduler's per-target state
// machine.
type Phase int

const (
	Pending Phase = iota
	Ready
	Building
	Built
	Serving
	Invalidated
	Failed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Building:
		return "building"
	case Built:
		return "built"
	case Serving:
		return "serving"
	case Invalidated:
		return "invalidated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type targetState struct {
	phase               Phase
	unmetDependencies   int
	pendingReinvocation bool
}

type buildOutcome struct {
	index   int
	skipped bool
	err     error
}

// Scheduler drives the active set of a target graph through its
// lifecycle. All mutable state below is touched only by the goroutine
// running Run; Invalidate is the sole entry point callable from other
// goroutines.
type Scheduler struct {
	graph      *graph.Graph
	active     []int
	watch      bool
	hasher     *fingerprint.Hasher
	store      *fingerprint.Store
	supervisor *supervisor.Supervisor
	metrics    *metrics.Counters
	log        logging.Logger

	states map[int]*targetState

	completions   chan buildOutcome
	invalidations chan []string

	invalidateOnce sync.Once
	closed         chan struct{}
}

// New constructs a Scheduler for the given active set (as returned by
// graph.Graph.ActiveSet). watch selects whether Run returns once the
// active set settles (one-shot `build`) or keeps running until ctx is
// cancelled (`watch`/`run`).
func New(
	g *graph.Graph,
	active []int,
	watch bool,
	hasher *fingerprint.Hasher,
	store *fingerprint.Store,
	sup *supervisor.Supervisor,
	m *metrics.Counters,
	log logging.Logger,
) *Scheduler {
	s := &Scheduler{
		graph:         g,
		active:        active,
		watch:         watch,
		hasher:        hasher,
		store:         store,
		supervisor:    sup,
		metrics:       m,
		log:           log.WithComponent("scheduler"),
		states:        make(map[int]*targetState, len(active)),
		completions:   make(chan buildOutcome, len(active)),
		invalidations: make(chan []string, 64),
		closed:        make(chan struct{}),
	}

	for _, idx := range active {
		s.states[idx] = &targetState{
			phase:             Pending,
			unmetDependencies: g.UnmetDependencyCount(idx, active),
		}
	}
	return s
}

// Invalidate notifies the scheduler that the named targets' inputs may
// have changed. Safe to call from any goroutine (the watch
// coordinator's).
func (s *Scheduler) Invalidate(names []string) {
	select {
	case s.invalidations <- names:
	case <-s.closed:
	}
}

// Phase returns the current phase of target idx, for tests.
func (s *Scheduler) Phase(idx int) Phase {
	return s.states[idx].phase
}

// Run drives the scheduler until the active set settles (one-shot
// mode) or ctx is cancelled (watch mode). It returns whether any
// active-set target ended in Failed, which the CLI maps to exit code 1.
func (s *Scheduler) Run(ctx context.Context) (anyFailed bool, err error) {
	defer close(s.closed)

	s.pushInitialReady()

	for {
		s.dispatchReady(ctx)

		if !s.watch && s.settled() {
			return s.anyFailed(), nil
		}

		select {
		case <-ctx.Done():
			s.shutdown(context.Background())
			return s.anyFailed(), ctx.Err()
		case outcome := <-s.completions:
			s.handleCompletion(ctx, outcome)
		case names := <-s.invalidations:
			s.handleInvalidation(names)
		}
	}
}

func (s *Scheduler) pushInitialReady() {
	for _, idx := range s.active {
		st := s.states[idx]
		if st.unmetDependencies == 0 {
			st.phase = Ready
		}
	}
}

// dispatchReady spawns a worker for every target currently Ready. It
// is called after every event, so targets freed by the event that just
// ran are picked up on the next iteration without a separate queue.
func (s *Scheduler) dispatchReady(ctx context.Context) {
	for _, idx := range s.active {
		st := s.states[idx]
		if st.phase != Ready {
			continue
		}
		st.phase = Building
		s.metrics.BuildStarted()
		go s.build(ctx, idx)
	}
}

func (s *Scheduler) build(ctx context.Context, idx int) {
	t := s.graph.Target(idx)

	var fp fingerprint.Fingerprint
	if len(t.InputPaths) > 0 {
		fp = s.hasher.Hash(t.Dir, t.InputPaths)
		if fp != fingerprint.AlwaysStale {
			if stored, ok := s.store.Load(t.Name); ok && stored == fp {
				s.completions <- buildOutcome{index: idx, skipped: true}
				return
			}
		}
	} else {
		fp = fingerprint.AlwaysStale
	}

	err := runner.RunBuild(ctx, t.Dir, t.BuildCommands)
	if err == nil && fp != fingerprint.AlwaysStale {
		if saveErr := s.store.Save(t.Name, fp); saveErr != nil {
			s.log.Warn(ctx, saveErr, "failed to persist fingerprint", "target", t.Name)
		}
	}

	s.completions <- buildOutcome{index: idx, err: err}
}

func (s *Scheduler) handleCompletion(ctx context.Context, outcome buildOutcome) {
	idx := outcome.index
	st := s.states[idx]
	t := s.graph.Target(idx)

	if outcome.skipped {
		s.metrics.BuildSkipped()
	} else if outcome.err != nil {
		s.metrics.BuildFailed()
		s.log.Error(ctx, outcome.err, "build failed", "target", t.Name)
		st.phase = Failed
		s.afterCompletion(ctx, idx, st)
		return
	} else {
		s.metrics.BuildSucceeded()
	}

	if t.HasService() {
		if err := s.supervisor.Replace(ctx, t.Dir, t.Name, t.ServiceCommand); err != nil {
			s.log.Error(ctx, err, "service spawn failed", "target", t.Name)
			st.phase = Failed
			s.afterCompletion(ctx, idx, st)
			return
		}
		s.metrics.ServiceRestarted()
		st.phase = Serving
	} else {
		st.phase = Built
	}

	s.advanceDependents(idx)
	s.afterCompletion(ctx, idx, st)
}

// afterCompletion implements the "if invalidated while Building,
// re-enter Ready regardless of outcome" rule.
func (s *Scheduler) afterCompletion(ctx context.Context, idx int, st *targetState) {
	if st.pendingReinvocation {
		st.pendingReinvocation = false
		st.phase = Ready
	}
}

// advanceDependents decrements unmet_dependencies on every dependent
// of idx and marks newly-unblocked ones Ready. A Failed target never
// reaches here, so dependents of a Failed target simply stay Pending.
func (s *Scheduler) advanceDependents(idx int) {
	for _, dep := range s.graph.Dependents(idx) {
		st, ok := s.states[dep]
		if !ok {
			continue // dependent outside the active set
		}
		st.unmetDependencies--
		if st.unmetDependencies == 0 && st.phase == Pending {
			st.phase = Ready
		}
	}
}

func (s *Scheduler) handleInvalidation(names []string) {
	for _, name := range names {
		idx, ok := s.graph.Index(name)
		if !ok {
			continue
		}
		st, ok := s.states[idx]
		if !ok {
			continue // outside the active set: not our concern
		}

		switch st.phase {
		case Building:
			st.pendingReinvocation = true
		case Built, Serving, Invalidated, Failed:
			if st.unmetDependencies == 0 {
				st.phase = Ready
			} else {
				st.phase = Invalidated
			}
		case Pending, Ready:
			// already headed for a (re)build
		}
	}
}

// settled reports whether no active-set target is Ready or Building,
// so nothing further can change in a one-shot run. Targets still
// Pending behind a Failed dependency count as settled: no completion
// can free them.
func (s *Scheduler) settled() bool {
	for _, idx := range s.active {
		switch s.states[idx].phase {
		case Ready, Building:
			return false
		}
	}
	return true
}

func (s *Scheduler) anyFailed() bool {
	for _, idx := range s.active {
		if s.states[idx].phase == Failed {
			return true
		}
	}
	return false
}

func (s *Scheduler) shutdown(ctx context.Context) {
	order, err := s.graph.TopoOrder(s.active)
	if err != nil {
		s.log.Error(ctx, err, "could not compute shutdown order; falling back to active-set order")
		order = s.active
	}
	s.supervisor.ShutdownAll(ctx, s.graph, order)
}
