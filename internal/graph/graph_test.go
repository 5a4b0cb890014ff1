package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
)

type recorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *recorder) task(name string, err error) Task {
	return NewTask(name, func(ctx context.Context, cfg *config.Config) (Artifacts, error) {
		r.mu.Lock()
		r.runs = append(r.runs, name)
		r.mu.Unlock()
		return nil, err
	})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func TestNodeString(t *testing.T) {
	rec := &recorder{}
	g := Series(
		Parallel(Leaf(rec.task("css", nil)), Leaf(rec.task("js", nil))),
		Parallel(Leaf(rec.task("watch", nil)), Leaf(rec.task("serve", nil))),
	)

	assert.Equal(t, "series(parallel(css, js), parallel(watch, serve))", g.String())
	assert.Equal(t, []string{"css", "js", "watch", "serve"}, g.Tasks())
	assert.Equal(t, KindSeries, g.Kind())
	assert.Len(t, g.Children(), 2)
	assert.Empty(t, rec.names(), "inspecting a graph must not run it")
}

func TestNodeIsImmutable(t *testing.T) {
	rec := &recorder{}
	children := []Node{Leaf(rec.task("a", nil)), Leaf(rec.task("b", nil))}
	g := Series(children...)

	children[0] = Leaf(rec.task("mutated", nil))
	got := g.Children()
	got[1] = Leaf(rec.task("also-mutated", nil))

	assert.Equal(t, "series(a, b)", g.String())
}

func TestWalkSkipsChildren(t *testing.T) {
	rec := &recorder{}
	g := Series(Leaf(rec.task("a", nil)), Parallel(Leaf(rec.task("b", nil))))

	var visited []string
	g.Walk(func(n Node, depth int) bool {
		visited = append(visited, n.Kind().String())
		return n.Kind() != KindParallel
	})
	assert.Equal(t, []string{"series", "leaf", "parallel"}, visited)
}

func TestSeriesRunsInOrder(t *testing.T) {
	rec := &recorder{}
	g := Series(Leaf(rec.task("clean", nil)), Leaf(rec.task("devcopy", nil)), Leaf(rec.task("styleguide", nil)))

	err := NewRunner(nil, nil).Run(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, []string{"clean", "devcopy", "styleguide"}, rec.names())
}

func TestSeriesHaltsOnFirstFailure(t *testing.T) {
	rec := &recorder{}
	failure := builderrors.NewIOError(builderrors.ErrCodeCleanFailed, "cannot remove", nil)
	g := Series(Leaf(rec.task("a", failure)), Leaf(rec.task("b", nil)))

	err := NewRunner(nil, nil).Run(context.Background(), g)
	require.Error(t, err)

	assert.Equal(t, []string{"a"}, rec.names())
	assert.ErrorIs(t, err, failure)

	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Equal(t, "a", taskErr.Task)
}

func TestParallelLetsSiblingsFinish(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "b.txt")
	failure := errors.New("a failed")

	a := NewTask("a", func(ctx context.Context, cfg *config.Config) (Artifacts, error) {
		return nil, failure
	})
	b := NewTask("b", func(ctx context.Context, cfg *config.Config) (Artifacts, error) {
		time.Sleep(20 * time.Millisecond)
		if err := os.WriteFile(out, []byte("b"), 0o644); err != nil {
			return nil, err
		}
		return Artifacts{out}, nil
	})

	err := NewRunner(nil, nil).Run(context.Background(), Parallel(Leaf(a), Leaf(b)))
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.FileExists(t, out)
}

func TestParallelRunsConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	task := func(name string) Task {
		return NewTask(name, func(ctx context.Context, cfg *config.Config) (Artifacts, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			inFlight.Add(-1)
			return nil, nil
		})
	}

	g := Parallel(Leaf(task("a")), Leaf(task("b")), Leaf(task("c")))
	require.NoError(t, NewRunner(nil, nil).Run(context.Background(), g))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestNestedComposites(t *testing.T) {
	rec := &recorder{}
	failure := errors.New("render failed")
	g := Series(
		Parallel(Leaf(rec.task("css", nil)), Leaf(rec.task("styleguide", failure))),
		Leaf(rec.task("serve", nil)),
	)

	err := NewRunner(nil, nil).Run(context.Background(), g)
	require.ErrorIs(t, err, failure)
	assert.ElementsMatch(t, []string{"css", "styleguide"}, rec.names())
}

func TestLeafPanicBecomesError(t *testing.T) {
	boom := NewTask("boom", func(ctx context.Context, cfg *config.Config) (Artifacts, error) {
		panic("kaboom")
	})

	var err error
	assert.NotPanics(t, func() {
		err = NewRunner(nil, nil).Run(context.Background(), Leaf(boom))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Contains(t, err.Error(), "boom")
}

func TestRunnerPassesConfigAndHooks(t *testing.T) {
	cfg, err := config.Default(t.TempDir())
	require.NoError(t, err)

	var seen *config.Config
	task := NewTask("css", func(ctx context.Context, c *config.Config) (Artifacts, error) {
		seen = c
		return Artifacts{"css/style.css"}, nil
	})

	var started, finished []string
	var gotArtifacts Artifacts
	runner := NewRunner(cfg, nil, WithHooks(Hooks{
		OnStart: func(ctx context.Context, name string) { started = append(started, name) },
		OnFinish: func(ctx context.Context, name string, a Artifacts, err error, _ time.Duration) {
			finished = append(finished, name)
			gotArtifacts = a
		},
	}))

	require.NoError(t, runner.Run(context.Background(), Leaf(task)))
	assert.Same(t, cfg, seen)
	assert.Equal(t, []string{"css"}, started)
	assert.Equal(t, []string{"css"}, finished)
	assert.Equal(t, Artifacts{"css/style.css"}, gotArtifacts)
}

func TestSeriesStopsWhenContextCancelled(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	first := NewTask("first", func(c context.Context, cfg *config.Config) (Artifacts, error) {
		cancel()
		return nil, nil
	})

	err := NewRunner(nil, nil).Run(ctx, Series(Leaf(first), Leaf(rec.task("second", nil))))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.names())
}
