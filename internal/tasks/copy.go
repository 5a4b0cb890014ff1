package tasks

import (
	"context"
	"os"
	"path"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
	"github.com/conneroisu/assetforge/internal/files"
	"github.com/conneroisu/assetforge/internal/graph"
)

// Clean deletes every configured clean path. Missing paths are fine; any
// other failure fails the task.
func Clean(d *Deps) graph.Task {
	return graph.NewTask(NameClean, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		var removed graph.Artifacts
		for _, p := range cfg.Clean {
			target := cfg.Path(p)
			if _, err := os.Lstat(target); os.IsNotExist(err) {
				continue
			}
			if err := os.RemoveAll(target); err != nil {
				return removed, builderrors.NewIOError(builderrors.ErrCodeCleanFailed,
					"removing "+p, err).WithLocation(p, 0, 0)
			}
			removed = append(removed, files.Normalize(p))
		}
		return removed, nil
	})
}

// DevCopy mirrors script and style sources into the style-guide component
// tree: "dir/_name.ext" becomes "<base>/components/name/style.ext".
func DevCopy(d *Deps) graph.Task {
	return graph.NewTask(NameDevCopy, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		return copyComponents(ctx, d, cfg, cfg.DevCopy.Sources, cfg.DevCopy.Exclude)
	})
}

// DevCopyComponent copies only the component stylesheets, using the same
// renaming as DevCopy.
func DevCopyComponent(d *Deps) graph.Task {
	return graph.NewTask(NameDevCopyComponent, func(ctx context.Context, cfg *config.Config) (graph.Artifacts, error) {
		return copyComponents(ctx, d, cfg, []string{cfg.DevCopy.Components}, nil)
	})
}

func copyComponents(ctx context.Context, d *Deps, cfg *config.Config, includes, excludes []string) (graph.Artifacts, error) {
	matches, err := files.GlobAll(cfg.Root, includes, excludes)
	if err != nil {
		return nil, builderrors.NewIOError(builderrors.ErrCodeFileNotFound, "expanding copy globs", err)
	}

	var copied graph.Artifacts
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		out := path.Join(files.Normalize(cfg.Styleguide.Base), files.ComponentPath(m.Path))
		if err := files.CopyFile(cfg.Path(m.Path), cfg.Path(out)); err != nil {
			return copied, builderrors.ErrWriteFailed(out, err)
		}
		copied = append(copied, out)
	}

	d.logger().Debug(ctx, "copied component sources", "count", len(copied))
	return copied, nil
}
