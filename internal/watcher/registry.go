package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/conneroisu/assetforge/internal/files"
	"github.com/conneroisu/assetforge/internal/graph"
	"github.com/conneroisu/assetforge/internal/logging"
)

// RunFunc executes a task graph.
type RunFunc func(ctx context.Context, g graph.Node) error

// Binding associates a glob pattern with the graph it triggers.
type Binding struct {
	Pattern string
	Graph   graph.Node
}

type binding struct {
	Binding
	// One slot: a trigger arriving while the graph runs is held here and
	// further triggers collapse into it.
	trigger chan struct{}
	runs    atomic.Int64
}

// Registry runs bound graphs when matching files change.
//
// Overlapping triggers for the same binding are coalesced: at most one run
// is in flight and at most one more is pending. Different bindings run
// independently of each other.
type Registry struct {
	root     string
	debounce time.Duration
	ignore   []string
	run      RunFunc
	logger   logging.Logger

	mu       sync.Mutex
	bindings []*binding
	watcher  *FileWatcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	closed   bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDebounce sets how long file events are gathered before dispatch.
func WithDebounce(d time.Duration) RegistryOption {
	return func(r *Registry) { r.debounce = d }
}

// WithIgnore sets directory names that are never watched or matched.
func WithIgnore(names ...string) RegistryOption {
	return func(r *Registry) { r.ignore = append([]string(nil), names...) }
}

// NewRegistry creates a registry rooted at root that executes graphs with run.
func NewRegistry(root string, run RunFunc, logger logging.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Registry{
		root:     root,
		debounce: 100 * time.Millisecond,
		run:      run,
		logger:   logger.WithComponent("watch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds pattern to g. Bindings are fixed once Start is called.
func (r *Registry) Register(pattern string, g graph.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("cannot register %q: registry already started", pattern)
	}
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty watch pattern")
	}

	r.bindings = append(r.bindings, &binding{
		Binding: Binding{Pattern: files.Normalize(pattern), Graph: g},
		trigger: make(chan struct{}, 1),
	})
	return nil
}

// Bindings returns the registered bindings in registration order.
func (r *Registry) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Binding, len(r.bindings))
	for i, b := range r.bindings {
		out[i] = b.Binding
	}
	return out
}

// Runs returns how many times the graph bound to pattern has completed.
func (r *Registry) Runs(pattern string) int64 {
	pattern = files.Normalize(pattern)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bindings {
		if b.Pattern == pattern {
			return b.runs.Load()
		}
	}
	return 0
}

// Start begins watching the base directory of every bound pattern and
// launches one worker per binding. It returns once watching is active.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("registry already started")
	}

	fw, err := NewFileWatcher(r.root, r.debounce, r.ignore, r.logger)
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}

	watched := make(map[string]bool)
	for _, b := range r.bindings {
		base := filepath.Join(r.root, filepath.FromSlash(files.Base(b.Pattern)))
		dir := existingAncestor(filepath.Clean(r.root), base)
		if dir != base {
			r.logger.Info(ctx, "watch directory does not exist yet, watching parent",
				"pattern", b.Pattern, "dir", dir)
		}
		if watched[dir] {
			continue
		}
		watched[dir] = true

		if err := fw.AddRecursive(dir); err != nil {
			fw.Stop()
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	fw.AddHandler(func(events []ChangeEvent) error {
		paths := make([]string, len(events))
		for i, e := range events {
			paths[i] = e.Path
		}
		r.Dispatch(paths...)
		return nil
	})

	runCtx, cancel := context.WithCancel(ctx)
	if err := fw.Start(runCtx); err != nil {
		cancel()
		fw.Stop()
		return err
	}

	for _, b := range r.bindings {
		r.wg.Add(1)
		go r.work(runCtx, b)
		r.logger.Info(ctx, "watching", "pattern", b.Pattern, "graph", b.Graph.String())
	}

	r.watcher = fw
	r.cancel = cancel
	r.started = true
	return nil
}

// Dispatch triggers every binding whose pattern matches one of paths and
// returns the matched patterns. Paths may be absolute or root-relative.
func (r *Registry) Dispatch(paths ...string) []string {
	r.mu.Lock()
	bindings := append([]*binding(nil), r.bindings...)
	r.mu.Unlock()

	var matched []string
	for _, b := range bindings {
		for _, p := range paths {
			rel, ok := r.relative(p)
			if !ok || !files.MatchPath(b.Pattern, rel) {
				continue
			}
			select {
			case b.trigger <- struct{}{}:
			default:
				// A run is already pending; this change is covered by it.
			}
			matched = append(matched, b.Pattern)
			break
		}
	}
	return matched
}

func (r *Registry) relative(p string) (string, bool) {
	if filepath.IsAbs(p) {
		absRoot, err := filepath.Abs(r.root)
		if err != nil {
			return "", false
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", false
		}
		p = rel
	}
	rel := files.Normalize(filepath.ToSlash(p))
	for _, segment := range strings.Split(rel, "/") {
		for _, ignored := range r.ignore {
			if segment == ignored {
				return "", false
			}
		}
	}
	return rel, true
}

func (r *Registry) work(ctx context.Context, b *binding) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.trigger:
			if err := r.run(ctx, b.Graph); err != nil {
				r.logger.Warn(ctx, err, "watch-triggered graph failed", "pattern", b.Pattern)
			}
			b.runs.Add(1)
		}
	}
}

// Close stops watching and waits for in-flight runs to finish.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed || !r.started {
		r.closed = true
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cancel := r.cancel
	fw := r.watcher
	r.mu.Unlock()

	cancel()
	var err error
	if fw != nil {
		err = multierr.Append(err, fw.Stop())
	}
	r.wg.Wait()
	return err
}

// existingAncestor returns dir, or its nearest existing parent that is still
// inside root. Directories created later below it are picked up by the
// watcher's create handling.
func existingAncestor(root, dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		if dir == root {
			return root
		}
		parent := filepath.Dir(dir)
		if parent == dir || !strings.HasPrefix(parent, root) {
			return root
		}
		dir = parent
	}
}
