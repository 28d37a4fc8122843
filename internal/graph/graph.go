// Package graph models the target dependency graph: a validated DAG
// built once from configuration, with topological traversal and
// reverse-dependency lookup over a caller-selected active set.
//
// Adjacency is stored as parallel int-indexed slices rather than an
// owning-pointer graph, so an active-set view can be produced cheaply
// without cloning target data (see DESIGN.md).
package graph

import (
	"fmt"
	"sort"

	"github.com/conneroisu/runloop/internal/rlerror"
)

// Target is a named unit of build work with inputs, build commands and
// an optional long-running service command.
type Target struct {
	Name           string
	Dir            string
	Dependencies   []string
	InputPaths     []string
	BuildCommands  []string
	ServiceCommand string
}

// HasService reports whether the target declares a service command.
func (t Target) HasService() bool {
	return t.ServiceCommand != ""
}

// Graph is a validated, immutable DAG of targets.
type Graph struct {
	targets []Target
	index   map[string]int
	forward [][]int // forward[i]: indices of i's dependencies
	reverse [][]int // reverse[i]: indices of targets that depend on i
}

// New validates targets and builds the graph. It fails with an
// *rlerror.Error of KindConfig if a dependency name is unknown, if a
// target name is duplicated, or if the graph contains a cycle.
func New(targets []Target) (*Graph, error) {
	index := make(map[string]int, len(targets))
	for i, t := range targets {
		if t.Name == "" {
			return nil, rlerror.New(rlerror.KindConfig, "", "target name must not be empty")
		}
		if _, dup := index[t.Name]; dup {
			return nil, rlerror.New(rlerror.KindConfig, t.Name, "duplicate target name")
		}
		index[t.Name] = i
	}

	forward := make([][]int, len(targets))
	reverse := make([][]int, len(targets))
	for i, t := range targets {
		for _, dep := range t.Dependencies {
			j, ok := index[dep]
			if !ok {
				return nil, rlerror.New(rlerror.KindConfig, t.Name,
					fmt.Sprintf("unknown dependency %q", dep))
			}
			forward[i] = append(forward[i], j)
			reverse[j] = append(reverse[j], i)
		}
	}

	g := &Graph{targets: targets, index: index, forward: forward, reverse: reverse}

	if cycle := g.findCycle(); cycle != nil {
		return nil, rlerror.New(rlerror.KindConfig, "",
			fmt.Sprintf("dependency cycle: %s", formatCycle(cycle, g)))
	}

	return g, nil
}

func formatCycle(cycle []int, g *Graph) string {
	names := make([]string, len(cycle))
	for i, idx := range cycle {
		names[i] = g.targets[idx].Name
	}
	s := ""
	for i, n := range names {
		if i > 0 {
			s += " -> "
		}
		s += n
	}
	return s
}

// findCycle performs a DFS cycle detection and returns one offending
// cycle (as a slice of target indices, first == last) or nil.
func (g *Graph) findCycle() []int {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.targets))
	path := make([]int, 0, len(g.targets))

	var visit func(i int) []int
	visit = func(i int) []int {
		color[i] = gray
		path = append(path, i)

		for _, dep := range g.forward[i] {
			switch color[dep] {
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			case gray:
				start := -1
				for p, idx := range path {
					if idx == dep {
						start = p
						break
					}
				}
				cycle := append([]int{}, path[start:]...)
				cycle = append(cycle, dep)
				return cycle
			}
		}

		path = path[:len(path)-1]
		color[i] = black
		return nil
	}

	// Deterministic iteration order for reproducible error messages.
	order := make([]int, len(g.targets))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return g.targets[order[a]].Name < g.targets[order[b]].Name })

	for _, i := range order {
		if color[i] == white {
			if cyc := visit(i); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// Index returns the internal index of a target name.
func (g *Graph) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Target returns the target at index i.
func (g *Graph) Target(i int) Target {
	return g.targets[i]
}

// Len returns the number of targets known to the graph.
func (g *Graph) Len() int {
	return len(g.targets)
}

// Dependencies returns the indices of the immediate dependencies of i.
func (g *Graph) Dependencies(i int) []int {
	return g.forward[i]
}

// Dependents returns the indices of the immediate reverse dependencies of i.
func (g *Graph) Dependents(i int) []int {
	return g.reverse[i]
}

// ActiveSet computes the transitive closure of root target names: the
// set of target indices reachable from the roots by following
// dependency edges, plus the roots themselves. Nodes outside this set
// are ignored for the invocation.
func (g *Graph) ActiveSet(roots []string) ([]int, error) {
	seen := make(map[int]bool)
	var walk func(i int)
	walk = func(i int) {
		if seen[i] {
			return
		}
		seen[i] = true
		for _, dep := range g.forward[i] {
			walk(dep)
		}
	}

	for _, name := range roots {
		i, ok := g.index[name]
		if !ok {
			return nil, rlerror.New(rlerror.KindConfig, name, "unknown root target")
		}
		walk(i)
	}

	active := make([]int, 0, len(seen))
	for i := range seen {
		active = append(active, i)
	}
	sort.Ints(active)
	return active, nil
}

// TopoOrder returns `active` sorted so that every target's dependencies
// (restricted to `active`) appear before it, using an iterative Kahn's
// algorithm. It returns an error if active contains a
// cycle, which cannot happen for a set produced by ActiveSet on a
// Graph built by New, but is checked defensively since active sets can
// also be supplied directly in tests.
func (g *Graph) TopoOrder(active []int) ([]int, error) {
	inActive := make(map[int]bool, len(active))
	for _, i := range active {
		inActive[i] = true
	}

	remaining := make(map[int]int, len(active))
	for _, i := range active {
		count := 0
		for _, dep := range g.forward[i] {
			if inActive[dep] {
				count++
			}
		}
		remaining[i] = count
	}

	var queue []int
	for _, i := range active {
		if remaining[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)

	order := make([]int, 0, len(active))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)

		var freed []int
		for _, dependent := range g.reverse[i] {
			if !inActive[dependent] {
				continue
			}
			remaining[dependent]--
			if remaining[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Ints(freed)
		queue = append(queue, freed...)
	}

	if len(order) != len(active) {
		return nil, rlerror.New(rlerror.KindConfig, "", "dependency cycle in active set")
	}
	return order, nil
}

// UnmetDependencyCount returns the number of i's dependencies that lie
// within the active set, used to initialize scheduler state.
func (g *Graph) UnmetDependencyCount(i int, active []int) int {
	inActive := make(map[int]bool, len(active))
	for _, a := range active {
		inActive[a] = true
	}
	count := 0
	for _, dep := range g.forward[i] {
		if inActive[dep] {
			count++
		}
	}
	return count
}
