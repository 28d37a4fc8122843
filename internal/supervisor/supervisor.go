// Package supervisor tracks and terminates the services spawned for
// targets that declare a service command, replacing one target's
// service at a time and stopping all of them dependents-first on
// shutdown.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/runloop/internal/graph"
	"github.com/conneroisu/runloop/internal/logging"
	"github.com/conneroisu/runloop/internal/runner"
)

// GracePeriod is how long Terminate waits for a service to exit on
// its own before the process group is killed outright.
const GracePeriod = 5 * time.Second

// Supervisor owns the set of currently-running services, keyed by
// target name.
type Supervisor struct {
	mu       sync.Mutex
	services map[string]*runner.Service
	log      logging.Logger
}

func New(log logging.Logger) *Supervisor {
	return &Supervisor{
		services: make(map[string]*runner.Service),
		log:      log.WithComponent("supervisor"),
	}
}

// Replace terminates any existing service for target, then spawns its
// replacement. Called whenever a target with a service command
// finishes a (re)build.
func (s *Supervisor) Replace(ctx context.Context, dir, target, command string) error {
	s.mu.Lock()
	existing := s.services[target]
	delete(s.services, target)
	s.mu.Unlock()

	if existing != nil {
		s.terminate(ctx, target, existing)
	}

	svc, err := runner.SpawnService(dir, command)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.services[target] = svc
	s.mu.Unlock()

	s.log.Info(ctx, "service started", "target", target, "pid", svc.Pid())
	return nil
}

// ShutdownAll terminates every running service, in the reverse
// topological order supplied by order (dependents before their
// dependencies, so a database is stopped after the API that uses it).
func (s *Supervisor) ShutdownAll(ctx context.Context, g *graph.Graph, order []int) {
	for i := len(order) - 1; i >= 0; i-- {
		target := g.Target(order[i]).Name

		s.mu.Lock()
		svc, ok := s.services[target]
		delete(s.services, target)
		s.mu.Unlock()

		if ok {
			s.terminate(ctx, target, svc)
		}
	}
}

// Running reports whether target currently has a supervised service.
func (s *Supervisor) Running(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.services[target]
	return ok
}

func (s *Supervisor) terminate(ctx context.Context, target string, svc *runner.Service) {
	s.log.Info(ctx, "stopping service", "target", target, "pid", svc.Pid())

	termCtx, cancel := context.WithTimeout(ctx, GracePeriod)
	defer cancel()

	if err := svc.Terminate(termCtx); err != nil && termCtx.Err() == nil {
		s.log.Warn(ctx, err, "service exited with error", "target", target)
	}
}
