package styleguide

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/templ"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
	"github.com/conneroisu/assetforge/internal/files"
	"github.com/conneroisu/assetforge/internal/logging"
)

// ProgressFunc receives the number of pages written so far and the total.
type ProgressFunc func(completed, total int)

// ErrorFunc receives every render failure before Build returns it.
type ErrorFunc func(err error)

// Builder renders the style-guide site into the destination directory.
type Builder struct {
	title         string
	componentsDir string
	docsDir       string
	dest          string
	logger        logging.Logger
	onProgress    []ProgressFunc
	onError       []ErrorFunc
}

// NewBuilder creates a builder from style-guide configuration.
func NewBuilder(cfg *config.Config, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		title:         cfg.Styleguide.Title,
		componentsDir: cfg.Path(cfg.Styleguide.Components),
		docsDir:       cfg.Path(cfg.Styleguide.Docs),
		dest:          cfg.Path(cfg.Styleguide.Dest),
		logger:        logger.WithComponent("styleguide"),
	}
}

// OnProgress registers a progress listener.
func (b *Builder) OnProgress(fn ProgressFunc) {
	b.onProgress = append(b.onProgress, fn)
}

// OnError registers an error listener.
func (b *Builder) OnError(fn ErrorFunc) {
	b.onError = append(b.onError, fn)
}

type page struct {
	path      string
	component templ.Component
}

// Build scans sources and writes the whole site, replacing whatever the
// destination held before. It returns the written paths relative to the
// destination.
func (b *Builder) Build(ctx context.Context) ([]string, error) {
	lib, err := Scan(b.title, b.componentsDir, b.docsDir)
	if err != nil {
		return nil, b.fail(err)
	}

	pages := []page{{path: "index.html", component: indexPage(lib)}}
	for _, c := range lib.Components {
		pages = append(pages, page{path: componentPath(c), component: componentPage(lib, c)})
	}
	for _, d := range lib.Docs {
		pages = append(pages, page{path: docPath(d), component: docPage(lib, d)})
	}

	if err := os.RemoveAll(b.dest); err != nil {
		return nil, b.fail(builderrors.NewIOError(builderrors.ErrCodeCleanFailed,
			"clearing style guide destination", err).WithLocation(b.dest, 0, 0))
	}

	written := make([]string, 0, len(pages)+1)
	total := len(pages)

	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		var buf bytes.Buffer
		if err := p.component.Render(ctx, &buf); err != nil {
			return written, b.fail(builderrors.NewRenderError(builderrors.ErrCodeRenderFailed,
				fmt.Sprintf("rendering %s", p.path), err).WithLocation(p.path, 0, 0))
		}
		if err := files.WriteFile(filepath.Join(b.dest, filepath.FromSlash(p.path)), buf.Bytes()); err != nil {
			return written, b.fail(builderrors.ErrWriteFailed(p.path, err))
		}
		written = append(written, p.path)

		b.progress(ctx, i+1, total)
	}

	if err := files.WriteFile(filepath.Join(b.dest, filepath.FromSlash(stylesheetPath)), []byte(stylesheet)); err != nil {
		return written, b.fail(builderrors.ErrWriteFailed(stylesheetPath, err))
	}
	written = append(written, stylesheetPath)

	b.logger.Info(ctx, "style guide build complete",
		"dest", b.dest, "components", len(lib.Components), "docs", len(lib.Docs))
	return written, nil
}

func (b *Builder) progress(ctx context.Context, completed, total int) {
	b.logger.Info(ctx, fmt.Sprintf("Rendering %d of %d...", completed, total))
	for _, fn := range b.onProgress {
		fn(completed, total)
	}
}

func (b *Builder) fail(err error) error {
	b.logger.Error(context.Background(), err, "style guide build failed")
	for _, fn := range b.onError {
		fn(err)
	}
	return err
}
