package watcher

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
	"github.com/conneroisu/assetforge/internal/graph"
)

func leaf(name string) graph.Node {
	return graph.Leaf(graph.NewTask(name, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		return nil, nil
	}))
}

type runLog struct {
	mu   sync.Mutex
	runs []string
}

func (l *runLog) run(ctx context.Context, g graph.Node) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, g.String())
	return nil
}

func (l *runLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.runs...)
}

func defaultBindings(t *testing.T, r *Registry) {
	t.Helper()
	require.NoError(t, r.Register("src/styles/**/*.scss", graph.Series(leaf("css"), leaf("reload"))))
	require.NoError(t, r.Register("src/scripts/**/*.js", graph.Series(leaf("js"), leaf("reload"))))
	require.NoError(t, r.Register("**/*.html", leaf("reload")))
	require.NoError(t, r.Register("src/images/**/*.{jpg,jpeg,png,svg,gif}", graph.Series(leaf("imagemcopy"), leaf("reload"))))
}

func TestDispatchMatchesOnlyBoundPatterns(t *testing.T) {
	r := NewRegistry(t.TempDir(), (&runLog{}).run, nil, WithIgnore("node_modules"))
	defaultBindings(t, r)

	tests := []struct {
		path string
		want []string
	}{
		{"src/styles/object/_button.scss", []string{"src/styles/**/*.scss"}},
		{"src/scripts/main.js", []string{"src/scripts/**/*.js"}},
		{"index.html", []string{"**/*.html"}},
		{"src/images/logo.svg", []string{"src/images/**/*.{jpg,jpeg,png,svg,gif}"}},
		{"README.md", nil},
		{"node_modules/pkg/index.html", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Dispatch(tt.path))
		})
	}
}

func TestDispatchAcceptsAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	r := NewRegistry(root, (&runLog{}).run, nil)
	require.NoError(t, r.Register("./src/styles/**/*.scss", leaf("css")))

	abs, err := filepath.Abs(filepath.Join(root, "src", "styles", "foo.scss"))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/styles/**/*.scss"}, r.Dispatch(abs))
	assert.Empty(t, r.Dispatch(filepath.Join(filepath.Dir(root), "src", "styles", "foo.scss")))
}

func TestRegisterAfterStartFails(t *testing.T) {
	r := NewRegistry(t.TempDir(), (&runLog{}).run, nil)
	require.NoError(t, r.Register("**/*.html", leaf("reload")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Close()

	assert.Error(t, r.Register("**/*.css", leaf("other")))
	assert.Error(t, r.Start(ctx))
}

func TestRegisterRejectsEmptyPattern(t *testing.T) {
	r := NewRegistry(t.TempDir(), (&runLog{}).run, nil)
	assert.Error(t, r.Register("  ", leaf("css")))
}

func TestTriggersCoalesceWhileRunning(t *testing.T) {
	release := make(chan struct{})
	var active, maxActive, total atomic.Int32

	run := func(ctx context.Context, g graph.Node) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		total.Add(1)
		return nil
	}

	r := NewRegistry(t.TempDir(), run, nil)
	require.NoError(t, r.Register("src/styles/**/*.scss", leaf("css")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	r.Dispatch("src/styles/foo.scss")
	require.Eventually(t, func() bool { return active.Load() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		r.Dispatch("src/styles/foo.scss")
	}

	close(release)
	require.Eventually(t, func() bool { return r.Runs("src/styles/**/*.scss") == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, r.Close())
	assert.Equal(t, int32(2), total.Load(), "five triggers during one run collapse into one follow-up")
	assert.Equal(t, int32(1), maxActive.Load(), "runs of one binding never overlap")
}

func TestDifferentBindingsRunIndependently(t *testing.T) {
	block := make(chan struct{})
	var scripts atomic.Int32

	run := func(ctx context.Context, g graph.Node) error {
		switch g.String() {
		case "css":
			<-block
		case "js":
			scripts.Add(1)
		}
		return nil
	}

	r := NewRegistry(t.TempDir(), run, nil)
	require.NoError(t, r.Register("src/styles/**/*.scss", leaf("css")))
	require.NoError(t, r.Register("src/scripts/**/*.js", leaf("js")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	r.Dispatch("src/styles/foo.scss")
	r.Dispatch("src/scripts/main.js")

	assert.Eventually(t, func() bool { return scripts.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(block)
	require.NoError(t, r.Close())
}

func TestRunErrorsDoNotStopWatching(t *testing.T) {
	var calls atomic.Int32
	run := func(ctx context.Context, g graph.Node) error {
		calls.Add(1)
		return errors.New("compile failed")
	}

	r := NewRegistry(t.TempDir(), run, nil)
	require.NoError(t, r.Register("src/styles/**/*.scss", leaf("css")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Close()

	r.Dispatch("src/styles/foo.scss")
	require.Eventually(t, func() bool { return r.Runs("src/styles/**/*.scss") == 1 }, time.Second, 5*time.Millisecond)
	r.Dispatch("src/styles/foo.scss")
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestFileChangeTriggersBoundGraph(t *testing.T) {
	root := t.TempDir()
	styles := filepath.Join(root, "src", "styles")
	scripts := filepath.Join(root, "src", "scripts")
	require.NoError(t, os.MkdirAll(styles, 0o755))
	require.NoError(t, os.MkdirAll(scripts, 0o755))

	log := &runLog{}
	r := NewRegistry(root, log.run, nil, WithDebounce(20*time.Millisecond))
	require.NoError(t, r.Register("src/styles/**/*.scss", graph.Series(leaf("css"), leaf("reload"))))
	require.NoError(t, r.Register("src/scripts/**/*.js", graph.Series(leaf("js"), leaf("reload"))))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Close()

	require.NoError(t, os.WriteFile(filepath.Join(styles, "foo.scss"), []byte("a { color: red; }"), 0o644))

	require.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	for _, g := range log.snapshot() {
		assert.Equal(t, "series(css, reload)", g)
	}
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	styles := filepath.Join(root, "src", "styles")
	require.NoError(t, os.MkdirAll(styles, 0o755))

	log := &runLog{}
	r := NewRegistry(root, log.run, nil, WithDebounce(20*time.Millisecond))
	require.NoError(t, r.Register("src/styles/**/*.scss", leaf("css")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Close()

	nested := filepath.Join(styles, "object", "component")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	// Give the watcher a moment to register the new directories.
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(nested, "_card.scss"), []byte(".card{}"), 0o644))

	assert.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestMissingBaseDirectoryIsWatchedOnceCreated(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "styles"), 0o755))

	log := &runLog{}
	r := NewRegistry(root, log.run, nil, WithDebounce(20*time.Millisecond))
	require.NoError(t, r.Register("src/images/**/*.png", leaf("imagemin")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Close()

	images := filepath.Join(root, "src", "images")
	require.NoError(t, os.Mkdir(images, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(images, "a.png"), []byte("png"), 0o644))

	require.Eventually(t, func() bool { return r.Runs("src/images/**/*.png") > 0 }, 3*time.Second, 20*time.Millisecond)
	assert.Contains(t, log.snapshot(), "imagemin")
}

func TestExistingAncestor(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "styles"), 0o755))

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"existing", filepath.Join(root, "src", "styles"), filepath.Join(root, "src", "styles")},
		{"missing leaf", filepath.Join(root, "src", "images"), filepath.Join(root, "src")},
		{"missing chain", filepath.Join(root, "assets", "img", "icons"), root},
		{"root", root, root},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, existingAncestor(root, tt.dir))
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r := NewRegistry(t.TempDir(), (&runLog{}).run, nil)
	assert.NoError(t, r.Close())

	r = NewRegistry(t.TempDir(), (&runLog{}).run, nil)
	require.NoError(t, r.Start(context.Background()))
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
