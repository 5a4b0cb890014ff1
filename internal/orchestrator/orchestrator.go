// Package orchestrator assembles leaf tasks into the named build graphs,
// wires the watch registries and dev servers they need, and runs a graph
// for the lifetime of the command.
package orchestrator

import (
	"context"
	"sort"
	"time"

	"go.uber.org/multierr"

	"github.com/conneroisu/assetforge/internal/cache"
	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
	"github.com/conneroisu/assetforge/internal/graph"
	"github.com/conneroisu/assetforge/internal/logging"
	"github.com/conneroisu/assetforge/internal/notify"
	"github.com/conneroisu/assetforge/internal/scripts"
	"github.com/conneroisu/assetforge/internal/server"
	"github.com/conneroisu/assetforge/internal/tasks"
	"github.com/conneroisu/assetforge/internal/watcher"
)

// Graph names accepted by Run.
const (
	GraphDefault    = "default"
	GraphBuild      = "build"
	GraphStyleguide = "styleguide"
	GraphClean      = tasks.NameClean
	GraphCSS        = tasks.NameCSS
	GraphJS         = tasks.NameJS
	GraphImages     = tasks.NameImages
	GraphDevCopy    = tasks.NameDevCopy
)

// ShutdownTimeout bounds how long resident services get to stop.
const ShutdownTimeout = 5 * time.Second

// Orchestrator owns the task graphs and the resident services of one run.
type Orchestrator struct {
	cfg    *config.Config
	logger logging.Logger
	deps   *tasks.Deps
	hooks  *graph.Hooks

	runner           *graph.Runner
	server           *server.DevServer
	styleguideServer *server.DevServer
	watch            *watcher.Registry
	watchStyleguide  *watcher.Registry

	graphs map[string]graph.Node
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStyles replaces the stylesheet compiler.
func WithStyles(s tasks.StyleBuilder) Option {
	return func(o *Orchestrator) { o.deps.Styles = s }
}

// WithScripts replaces the script bundler.
func WithScripts(b scripts.Bundler) Option {
	return func(o *Orchestrator) { o.deps.Scripts = b }
}

// WithNotifier replaces the error notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.deps.Notifier = n }
}

// WithHooks observes every leaf task run, including watch-triggered ones.
func WithHooks(h graph.Hooks) Option {
	return func(o *Orchestrator) { o.hooks = &h }
}

// New wires every graph for cfg.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: logger,
		deps: &tasks.Deps{
			Cache:  cache.New(0),
			Logger: logger,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.deps.Notifier == nil {
		o.deps.Notifier = notify.FromConfig(cfg, nil, logger)
	}

	var runnerOpts []graph.RunnerOption
	if o.hooks != nil {
		runnerOpts = append(runnerOpts, graph.WithHooks(*o.hooks))
	}
	o.runner = graph.NewRunner(cfg, logger, runnerOpts...)

	o.server = server.New(tasks.NameServe, server.OptionsFromConfig(cfg.Server), logger)
	sgOpts := server.OptionsFromConfig(cfg.Server)
	sgOpts.Notify = false
	sgOpts.StartPath = "/"
	o.styleguideServer = server.New(tasks.NameStyleguideServe, sgOpts, logger)

	o.watch = o.newRegistry()
	o.watchStyleguide = o.newRegistry()

	o.graphs = o.buildGraphs()
	return o
}

func (o *Orchestrator) newRegistry() *watcher.Registry {
	return watcher.NewRegistry(o.cfg.Root, o.runner.Run, o.logger,
		watcher.WithDebounce(o.cfg.Watch.Debounce),
		watcher.WithIgnore(o.cfg.Watch.Ignore...),
	)
}

func (o *Orchestrator) buildGraphs() map[string]graph.Node {
	css := graph.Leaf(tasks.CSS(o.deps))
	js := graph.Leaf(tasks.JS(o.deps))
	images := graph.Leaf(tasks.ImageMinCopy(o.deps))
	clean := graph.Leaf(tasks.Clean(o.deps))
	devcopy := graph.Leaf(tasks.DevCopy(o.deps))
	devcopyComponent := graph.Leaf(tasks.DevCopyComponent(o.deps))
	styleguide := graph.Leaf(tasks.Styleguide(o.deps))
	reload := graph.Leaf(tasks.Reload(o.server, o.styleguideServer))

	paths := o.cfg.Paths
	o.bind(o.watch, paths.Styles, graph.Series(css, reload))
	o.bind(o.watch, paths.Scripts, graph.Series(js, reload))
	o.bind(o.watch, paths.HTML, reload)
	o.bind(o.watch, paths.Images, graph.Series(images, reload))

	o.bind(o.watchStyleguide, paths.Styles, graph.Series(css, reload))
	o.bind(o.watchStyleguide, paths.Scripts, graph.Series(js, reload))
	o.bind(o.watchStyleguide, paths.Images, graph.Series(images, reload))

	watch := graph.Leaf(tasks.Watch(tasks.NameWatch, o.watch))
	watchStyleguide := graph.Leaf(tasks.Watch(tasks.NameWatchStyleguide, o.watchStyleguide))
	serve := graph.Leaf(tasks.Serve(o.server))
	styleguideServe := graph.Leaf(tasks.StyleguideServe(o.styleguideServer))

	devcopyGraph := graph.Series(clean, devcopy, devcopyComponent)

	return map[string]graph.Node{
		GraphCSS:     css,
		GraphJS:      js,
		GraphImages:  images,
		GraphClean:   clean,
		GraphDevCopy: devcopyGraph,
		GraphBuild:   graph.Series(devcopyGraph, styleguide),
		GraphDefault: graph.Parallel(css, js, watch, serve),
		GraphStyleguide: graph.Series(
			graph.Parallel(css, js, devcopyComponent, styleguide),
			graph.Parallel(watchStyleguide, styleguideServe),
		),
	}
}

func (o *Orchestrator) bind(r *watcher.Registry, pattern string, g graph.Node) {
	if pattern == "" {
		return
	}
	if err := r.Register(pattern, g); err != nil {
		o.logger.Warn(context.Background(), err, "skipping watch binding", "pattern", pattern)
	}
}

// Tasks returns the graph names accepted by Run, sorted.
func (o *Orchestrator) Tasks() []string {
	names := make([]string, 0, len(o.graphs))
	for name := range o.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Graph returns the named graph.
func (o *Orchestrator) Graph(name string) (graph.Node, error) {
	g, ok := o.graphs[name]
	if !ok {
		return graph.Node{}, builderrors.ErrUnknownTask(name)
	}
	return g, nil
}

// Server returns the project dev server.
func (o *Orchestrator) Server() *server.DevServer { return o.server }

// StyleguideServer returns the style-guide dev server.
func (o *Orchestrator) StyleguideServer() *server.DevServer { return o.styleguideServer }

// Resident reports whether the named graph starts long-lived services.
func (o *Orchestrator) Resident(name string) bool {
	g, ok := o.graphs[name]
	if !ok {
		return false
	}
	for _, task := range g.Tasks() {
		switch task {
		case tasks.NameServe, tasks.NameStyleguideServe, tasks.NameWatch, tasks.NameWatchStyleguide:
			return true
		}
	}
	return false
}

// Run executes the named graph. Graphs that start a server or a watcher
// keep running until ctx is cancelled; the services are then shut down and
// Run returns nil. A failed graph shuts down whatever it started and
// returns the failure.
func (o *Orchestrator) Run(ctx context.Context, name string) error {
	g, err := o.Graph(name)
	if err != nil {
		return err
	}

	o.logger.Info(ctx, "running graph", "task", name, "graph", g.String())

	if err := o.runner.Run(ctx, g); err != nil {
		return multierr.Append(err, o.shutdown())
	}

	if !o.Resident(name) {
		return nil
	}

	if url := o.server.URL(); url != "" {
		o.logger.Info(ctx, "dev server ready", "url", url)
	}
	if url := o.styleguideServer.URL(); url != "" {
		o.logger.Info(ctx, "style guide server ready", "url", url)
	}
	o.logger.Info(ctx, "watching for changes, press Ctrl+C to stop")

	<-ctx.Done()
	return o.shutdown()
}

func (o *Orchestrator) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return multierr.Combine(
		o.watch.Close(),
		o.watchStyleguide.Close(),
		o.server.Stop(ctx),
		o.styleguideServer.Stop(ctx),
	)
}
