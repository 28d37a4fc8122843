// Package engine is the top-level façade: it builds the user-selected
// root targets, optionally transitions to the watch loop, and drives
// orderly shutdown on signal.
package engine

import (
	"context"

	"github.com/conneroisu/runloop/internal/fingerprint"
	"github.com/conneroisu/runloop/internal/graph"
	"github.com/conneroisu/runloop/internal/logging"
	"github.com/conneroisu/runloop/internal/metrics"
	"github.com/conneroisu/runloop/internal/rlerror"
	"github.com/conneroisu/runloop/internal/scheduler"
	"github.com/conneroisu/runloop/internal/supervisor"
	"github.com/conneroisu/runloop/internal/watch"
)

// Options configures one engine run.
type Options struct {
	Graph    *graph.Graph
	Roots    []string
	StateDir string
	Watch    bool // build + watch, no watch loop exit on settle
	Logger   logging.Logger
	Metrics  *metrics.Counters
}

// Result is what a completed run reports to the CLI layer.
type Result struct {
	AnyFailed bool
	Metrics   metrics.Snapshot
}

// Run executes one engine invocation: initial build of the active set,
// then (if opts.Watch, or if any active-set target declares a service)
// the filesystem watch loop until ctx is cancelled.
func Run(ctx context.Context, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.New(logging.DefaultConfig())
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	active, err := opts.Graph.ActiveSet(opts.Roots)
	if err != nil {
		return Result{}, err
	}

	store, err := fingerprint.NewStore(opts.StateDir)
	if err != nil {
		return Result{}, err
	}

	// A target that declares a service keeps the engine alive past its
	// own Built/Serving transition even if the caller only asked for a
	// one-shot build: there would be nothing left to watch for, but the
	// service itself must keep running until shutdown.
	watchMode := opts.Watch || hasService(opts.Graph, active)

	sup := supervisor.New(log)
	sched := scheduler.New(opts.Graph, active, watchMode, fingerprint.NewHasher(), store, sup, m, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var watchErr error
	if watchMode {
		coordinator, err := watch.New(opts.Graph, active, log)
		if err != nil {
			return Result{}, err
		}
		go func() {
			if err := coordinator.Run(runCtx, sched.Invalidate); err != nil {
				watchErr = err
				log.Error(runCtx, err, "watch coordinator failed")
				cancel()
			}
		}()
	}

	anyFailed, runErr := sched.Run(runCtx)
	snapshot := m.Snapshot()
	log.Info(runCtx, "shutdown metrics",
		"builds_started", snapshot.BuildsStarted,
		"builds_succeeded", snapshot.BuildsSucceeded,
		"builds_failed", snapshot.BuildsFailed,
		"builds_skipped", snapshot.BuildsSkipped,
		"service_restarts", snapshot.ServiceRestarts,
	)

	if watchErr != nil {
		return Result{AnyFailed: anyFailed, Metrics: snapshot}, watchErr
	}
	if runErr != nil && runErr != context.Canceled {
		return Result{AnyFailed: anyFailed, Metrics: snapshot}, rlerror.Wrap(rlerror.KindWatch, "", "engine run", runErr)
	}

	return Result{AnyFailed: anyFailed, Metrics: snapshot}, nil
}

func hasService(g *graph.Graph, active []int) bool {
	for _, idx := range active {
		if g.Target(idx).HasService() {
			return true
		}
	}
	return false
}
