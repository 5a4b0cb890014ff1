package tasks

import (
	"context"

	"github.com/conneroisu/assetforge/internal/config"
	"github.com/conneroisu/assetforge/internal/graph"
	"github.com/conneroisu/assetforge/internal/server"
	"github.com/conneroisu/assetforge/internal/styleguide"
)

// Reloader is anything that can tell browsers to reload.
type Reloader interface {
	NotifyReload(ctx context.Context)
}

// Starter launches a resident service and returns once it is running.
type Starter interface {
	Start(ctx context.Context) error
}

// Styleguide renders the style-guide site. Render errors are logged, not
// sent to the notifier, and fail the task.
func Styleguide(d *Deps) graph.Task {
	return graph.NewTask(NameStyleguide, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		b := styleguide.NewBuilder(cfg, d.logger())

		pages, err := b.Build(ctx)
		if err != nil {
			return nil, err
		}

		dest := cfg.Styleguide.Dest
		out := make(graph.Artifacts, len(pages))
		for i, p := range pages {
			out[i] = rel(dest, p)
		}
		return out, nil
	})
}

// Serve starts the project dev server on the root directory, or as a proxy
// when the configuration selects proxy mode.
func Serve(srv *server.DevServer) graph.Task {
	return graph.NewTask(NameServe, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		return nil, srv.Start(ctx, server.TargetFromConfig(cfg, cfg.Root))
	})
}

// StyleguideServe starts a static server on the style-guide destination.
func StyleguideServe(srv *server.DevServer) graph.Task {
	return graph.NewTask(NameStyleguideServe, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		return nil, srv.Start(ctx, server.Target{BaseDir: cfg.Path(cfg.Styleguide.Dest)})
	})
}

// Reload notifies every reloader. Reloaders that are not running ignore it.
func Reload(reloaders ...Reloader) graph.Task {
	return graph.NewTask(NameReload, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		for _, r := range reloaders {
			r.NotifyReload(ctx)
		}
		return nil, nil
	})
}

// Watch starts a watch registry under the given task name.
func Watch(name string, s Starter) graph.Task {
	return graph.NewTask(name, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		return nil, s.Start(ctx)
	})
}
