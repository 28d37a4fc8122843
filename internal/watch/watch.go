// Package watch subscribes to filesystem changes under the active
// set's declared input paths, debounces bursts of events, and maps
// each changed path back to the targets it belongs to.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/runloop/internal/graph"
	"github.com/conneroisu/runloop/internal/logging"
	"github.com/conneroisu/runloop/internal/rlerror"
)

// DefaultDebounce is the quiet window used to coalesce a burst of
// filesystem events (e.g. an editor's rename-over-temp-file save)
// into a single invalidation.
const DefaultDebounce = 75 * time.Millisecond

// maxPendingPaths bounds the debouncer's pending set; once it is full,
// further events are dropped with a warning until the next flush rather
// than letting memory grow unbounded under a runaway change storm.
const maxPendingPaths = 1000

// Coordinator watches the union of every active-set target's input
// paths and emits invalidations naming the targets affected by each
// debounced burst.
type Coordinator struct {
	watcher *fsnotify.Watcher
	log     logging.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	delay   time.Duration

	paths []watchedPath // sorted longest-prefix-first
}

type watchedPath struct {
	abs    string
	target string
}

// New creates a Coordinator watching every input path declared by the
// targets at the given active-set indices, rooted at each target's
// directory.
func New(g *graph.Graph, active []int, log logging.Logger) (*Coordinator, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, rlerror.Wrap(rlerror.KindWatch, "", "create filesystem watcher", err)
	}

	c := &Coordinator{
		watcher: w,
		log:     log.WithComponent("watch"),
		pending: make(map[string]struct{}),
		delay:   DefaultDebounce,
	}

	for _, idx := range active {
		t := g.Target(idx)
		for _, rel := range t.InputPaths {
			abs := filepath.Join(t.Dir, rel)
			c.paths = append(c.paths, watchedPath{abs: abs, target: t.Name})
			if err := c.addRecursive(abs); err != nil {
				// The input path may not exist yet; that is not a
				// watch error. A path missing here is not subscribed,
				// and is not picked up if it is created later.
				continue
			}
		}
	}

	// Longest path first so the first match in matchTargets is the
	// most specific one.
	sort.Slice(c.paths, func(i, j int) bool { return len(c.paths[i].abs) > len(c.paths[j].abs) })

	return c, nil
}

// addRecursive subscribes abs, and every subdirectory beneath it, to
// the underlying watcher. inotify (and the other platforms fsnotify
// wraps) does not watch subdirectories of a watched directory on its
// own, so a target whose input path contains nested directories needs
// every one of them added individually.
func (c *Coordinator) addRecursive(abs string) error {
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return c.watcher.Add(abs)
	}
	return filepath.Walk(abs, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return c.watcher.Add(path)
		}
		return nil
	})
}

// Run watches for filesystem events until ctx is done, calling invalidate
// with the set of target names affected by each debounced burst.
func (c *Coordinator) Run(ctx context.Context, invalidate func([]string)) error {
	defer c.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-c.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if err := c.addRecursive(event.Name); err != nil {
						c.log.Warn(ctx, err, "failed to watch new subdirectory", "path", event.Name)
					}
				}
			}
			c.record(ctx, event.Name, invalidate)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return nil
			}
			return rlerror.Wrap(rlerror.KindWatch, "", "filesystem watcher error", err)
		}
	}
}

func (c *Coordinator) record(ctx context.Context, path string, invalidate func([]string)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) >= maxPendingPaths {
		c.log.Warn(ctx, nil, "dropping watch event due to backpressure", "path", path)
		return
	}
	c.pending[path] = struct{}{}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, func() { c.flush(invalidate) })
}

func (c *Coordinator) flush(invalidate func([]string)) {
	c.mu.Lock()
	paths := make([]string, 0, len(c.pending))
	for p := range c.pending {
		paths = append(paths, p)
	}
	c.pending = make(map[string]struct{})
	c.mu.Unlock()

	if len(paths) == 0 {
		return
	}

	targets := c.matchTargets(paths)
	if len(targets) > 0 {
		invalidate(targets)
	}
}

// matchTargets returns the deduplicated, order-stable set of target
// names whose declared input path is a prefix of at least one changed
// path, matching on the longest such prefix.
func (c *Coordinator) matchTargets(paths []string) []string {
	seen := make(map[string]bool)
	var targets []string
	for _, changed := range paths {
		for _, wp := range c.paths {
			if changed == wp.abs || strings.HasPrefix(changed, wp.abs+string(filepath.Separator)) {
				if !seen[wp.target] {
					seen[wp.target] = true
					targets = append(targets, wp.target)
				}
				break // longest match for this path already found (sorted order)
			}
		}
	}
	sort.Strings(targets)
	return targets
}
