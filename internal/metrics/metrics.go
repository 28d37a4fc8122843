// Package metrics tracks in-process counters for one build/watch/run
// invocation, logged as a summary line when that invocation shuts down.
package metrics

import "sync/atomic"

// Counters holds the build and service lifecycle counters for one run.
type Counters struct {
	buildsStarted   atomic.Int64
	buildsSucceeded atomic.Int64
	buildsFailed    atomic.Int64
	buildsSkipped   atomic.Int64
	serviceRestarts atomic.Int64
}

func New() *Counters {
	return &Counters{}
}

func (c *Counters) BuildStarted()   { c.buildsStarted.Add(1) }
func (c *Counters) BuildSucceeded() { c.buildsSucceeded.Add(1) }
func (c *Counters) BuildFailed()    { c.buildsFailed.Add(1) }
func (c *Counters) BuildSkipped()   { c.buildsSkipped.Add(1) }
func (c *Counters) ServiceRestarted() { c.serviceRestarts.Add(1) }

// Snapshot is a point-in-time, JSON-friendly copy of the counters.
type Snapshot struct {
	BuildsStarted   int64 `json:"builds_started"`
	BuildsSucceeded int64 `json:"builds_succeeded"`
	BuildsFailed    int64 `json:"builds_failed"`
	BuildsSkipped   int64 `json:"builds_skipped"`
	ServiceRestarts int64 `json:"service_restarts"`
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		BuildsStarted:   c.buildsStarted.Load(),
		BuildsSucceeded: c.buildsSucceeded.Load(),
		BuildsFailed:    c.buildsFailed.Load(),
		BuildsSkipped:   c.buildsSkipped.Load(),
		ServiceRestarts: c.serviceRestarts.Load(),
	}
}
