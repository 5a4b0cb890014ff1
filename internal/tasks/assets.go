package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
	"github.com/conneroisu/assetforge/internal/files"
	"github.com/conneroisu/assetforge/internal/graph"
	"github.com/conneroisu/assetforge/internal/scripts"
	"github.com/conneroisu/assetforge/internal/styles"
)

// CSS compiles every non-partial stylesheet into the CSS destination,
// mirroring the source directory layout. A stylesheet that fails to compile
// keeps its previous output.
func CSS(d *Deps) graph.Task {
	return graph.NewTask(NameCSS, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		matches, err := files.Glob(cfg.Root, cfg.Paths.Styles)
		if err != nil {
			return nil, builderrors.NewIOError(builderrors.ErrCodeFileNotFound, "expanding styles glob", err)
		}

		builder := d.styles(ctx, cfg)
		var written graph.Artifacts

		for _, m := range matches {
			if styles.IsPartial(m.Path) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return written, err
			}

			css, err := builder.Build(ctx, cfg.Root, m.Path)
			if err != nil {
				d.report(ctx, asCompileError(err, builderrors.ErrCodeStyleCompile, m.Path))
				continue
			}

			out := rel(cfg.Paths.CSSDest, files.ReplaceExt(m.Rel, ".css"))
			changed, err := d.write(cfg, out, css)
			if err != nil {
				return written, err
			}
			if changed {
				written = append(written, out)
			}
		}
		return written, nil
	})
}

// JS bundles the script entry point into a single file.
func JS(d *Deps) graph.Task {
	return graph.NewTask(NameJS, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		js, err := d.scripts().Bundle(ctx, cfg.Root, cfg.Scripts.Entry, scripts.Options{
			Target:     cfg.Scripts.Target,
			SourceMap:  cfg.Scripts.SourceMaps,
			Minify:     cfg.Scripts.Minify,
			Extensions: cfg.Scripts.Extensions,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !builderrors.IsRecoverable(err) {
				return nil, err
			}
			d.report(ctx, err)
			return nil, nil
		}

		out := rel(cfg.Paths.JSDest, cfg.Scripts.Bundle)
		changed, err := d.write(cfg, out, js)
		if err != nil || !changed {
			return nil, err
		}
		return graph.Artifacts{out}, nil
	})
}

// ImageMinCopy optimizes every image into the image destination.
func ImageMinCopy(d *Deps) graph.Task {
	return graph.NewTask(NameImages, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		matches, err := files.Glob(cfg.Root, cfg.Paths.Images)
		if err != nil {
			return nil, builderrors.NewIOError(builderrors.ErrCodeFileNotFound, "expanding images glob", err)
		}

		optimizer := d.images(cfg)
		var written graph.Artifacts
		saved := 0

		for _, m := range matches {
			if err := ctx.Err(); err != nil {
				return written, err
			}

			data, err := os.ReadFile(cfg.Path(m.Path))
			if err != nil {
				return written, builderrors.ErrFileNotFound(m.Path, err)
			}

			res, err := optimizer.Optimize(m.Path, data)
			if err != nil {
				d.report(ctx, err)
				continue
			}
			saved += res.Saved()

			out := rel(cfg.Paths.ImgDest, m.Rel)
			changed, err := d.write(cfg, out, res.Data)
			if err != nil {
				return written, err
			}
			if changed {
				written = append(written, out)
			}
		}

		d.logger().Info(ctx, fmt.Sprintf("Minified %d images", len(matches)), "saved_bytes", saved)
		return written, nil
	})
}

// write stores data at the root-relative path out unless the cache shows
// the file already holds it. It reports whether the file was written.
func (d *Deps) write(cfg *config.Config, out string, data []byte) (bool, error) {
	dst := cfg.Path(out)
	if d.Cache != nil && d.Cache.Unchanged(dst, data) {
		if _, err := os.Stat(dst); err == nil {
			return false, nil
		}
	}
	if err := files.WriteFile(dst, data); err != nil {
		return false, builderrors.ErrWriteFailed(filepath.ToSlash(out), err)
	}
	if d.Cache != nil {
		d.Cache.Remember(dst, data)
	}
	return true, nil
}

// asCompileError makes sure a transform failure carries the compile type
// and the source it came from.
func asCompileError(err error, code, src string) error {
	var buildErr *builderrors.BuildError
	if errors.As(err, &buildErr) {
		return buildErr
	}
	return builderrors.NewCompileError(code, err.Error(), err).WithLocation(src, 0, 0)
}
