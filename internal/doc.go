// Package internal contains the core implementation packages for
// runloop, an incremental parallel build orchestrator.
//
// # Package Organization
//
//   - config: loads runloop.yml into a validated target graph
//   - graph: the target dependency DAG (validation, active set, topological order)
//   - fingerprint: input hashing and the on-disk fingerprint store
//   - runner: shell command execution for builds and services
//   - supervisor: lifecycle management of supervised service processes
//   - scheduler: the driver that walks the active set from Pending to a terminal phase
//   - watch: filesystem-change subscription, debouncing, and path-to-target mapping
//   - metrics: in-process build/service counters
//   - engine: the façade tying the above into one invocation
//   - logging: the structured logger used throughout
//   - rlerror: the structured error type used to map failures to exit codes
//   - version: build metadata (version, commit, build time)
package internal
