// Package tasks defines the leaf tasks that build graphs are composed of.
//
// Every constructor returns a graph.Task whose function reads all inputs
// from the configuration it is run with. Transform failures (a Sass syntax
// error, a broken import, a corrupt image) are reported through the
// notifier and the task still finishes, so a reload chained after it runs.
package tasks

import (
	"context"
	"path"
	"sync"

	"github.com/conneroisu/assetforge/internal/cache"
	"github.com/conneroisu/assetforge/internal/config"
	"github.com/conneroisu/assetforge/internal/images"
	"github.com/conneroisu/assetforge/internal/logging"
	"github.com/conneroisu/assetforge/internal/notify"
	"github.com/conneroisu/assetforge/internal/scripts"
	"github.com/conneroisu/assetforge/internal/styles"
)

// Task names.
const (
	NameCSS              = "css"
	NameJS               = "js"
	NameImages           = "imagemcopy"
	NameClean            = "clean"
	NameDevCopy          = "devcopy"
	NameDevCopyComponent = "devcopy-component"
	NameStyleguide       = "styleguide"
	NameServe            = "serve"
	NameStyleguideServe  = "styleguide-serve"
	NameReload           = "reload"
	NameWatch            = "watch"
	NameWatchStyleguide  = "watch-styleguide"
)

// StyleBuilder compiles one stylesheet entry point to CSS.
type StyleBuilder interface {
	Build(ctx context.Context, root, src string) ([]byte, error)
}

// Deps are the collaborators leaf tasks delegate to. Nil fields are built
// from configuration when a task runs. A Deps must not be copied after
// first use.
type Deps struct {
	Styles   StyleBuilder
	Scripts  scripts.Bundler
	Images   *images.Optimizer
	Notifier notify.Notifier
	Cache    *cache.OutputCache
	Logger   logging.Logger

	stylesOnce sync.Once
	pipeline   StyleBuilder
}

func (d *Deps) logger() logging.Logger {
	if d.Logger == nil {
		return logging.NewNop()
	}
	return d.Logger
}

func (d *Deps) notifier() notify.Notifier {
	if d.Notifier == nil {
		return notify.NewConsoleNotifier(nil)
	}
	return d.Notifier
}

// styles returns the configured builder. The default pipeline looks up the
// prefixer command, so it is built once from the first run's configuration.
func (d *Deps) styles(ctx context.Context, cfg *config.Config) StyleBuilder {
	if d.Styles != nil {
		return d.Styles
	}
	d.stylesOnce.Do(func() {
		d.pipeline = styles.FromConfig(ctx, cfg, nil, d.logger())
	})
	return d.pipeline
}

func (d *Deps) scripts() scripts.Bundler {
	if d.Scripts != nil {
		return d.Scripts
	}
	return scripts.NewESBuild()
}

func (d *Deps) images(cfg *config.Config) *images.Optimizer {
	if d.Images != nil {
		return d.Images
	}
	return images.NewOptimizer(cfg.Images)
}

// report hands a recoverable failure to the notifier.
func (d *Deps) report(ctx context.Context, err error) {
	notify.Report(ctx, err, d.notifier(), d.logger())
}

// rel joins a root-relative directory and a slash path for artifact lists.
func rel(dir, p string) string {
	return path.Join(path.Clean("/" + dir)[1:], p)
}
