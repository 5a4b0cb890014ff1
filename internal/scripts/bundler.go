// Package scripts bundles the JavaScript entry point and everything it
// imports into a single browser file using esbuild's Go API.
package scripts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	builderrors "github.com/conneroisu/assetforge/internal/errors"
)

// Options control a bundle.
type Options struct {
	// Target is an ECMAScript version such as es2015.
	Target     string
	SourceMap  bool
	Minify     bool
	Extensions []string
}

// Bundler produces one output file from one entry point.
type Bundler interface {
	Bundle(ctx context.Context, root, entry string, opts Options) ([]byte, error)
}

// ESBuild bundles in-process with esbuild.
type ESBuild struct{}

// NewESBuild creates an esbuild bundler.
func NewESBuild() *ESBuild {
	return &ESBuild{}
}

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"esnext": api.ESNext,
}

// ParseTarget maps a configured target name onto esbuild's.
func ParseTarget(name string) (api.Target, error) {
	t, ok := targets[strings.ToLower(name)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unknown script target %q", name)
	}
	return t, nil
}

// Bundle bundles entry (relative to root) and returns the output script.
func (b *ESBuild) Bundle(ctx context.Context, root, entry string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := ParseTarget(opts.Target)
	if err != nil {
		return nil, builderrors.NewConfigError(builderrors.ErrCodeConfigInvalid, err.Error())
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	// A missing entry point is an input error, not a compile error.
	if _, err := os.Stat(filepath.Join(absRoot, filepath.FromSlash(entry))); err != nil {
		return nil, builderrors.ErrFileNotFound(entry, err)
	}

	sourcemap := api.SourceMapNone
	if opts.SourceMap {
		sourcemap = api.SourceMapInline
	}

	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = []string{".js"}
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{filepath.ToSlash(entry)},
		AbsWorkingDir:     absRoot,
		Bundle:            true,
		Write:             false,
		Outfile:           "bundle.js",
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            target,
		Sourcemap:         sourcemap,
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		ResolveExtensions: extensions,
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return nil, bundleError(entry, result.Errors)
	}

	for _, f := range result.OutputFiles {
		if strings.HasSuffix(f.Path, ".js") {
			return f.Contents, nil
		}
	}
	return nil, builderrors.NewInternalError(builderrors.ErrCodeScriptBundle, "esbuild produced no output", nil)
}

// bundleError reports the first esbuild error as a CompileError; further
// errors are folded into the message.
func bundleError(entry string, msgs []api.Message) *builderrors.BuildError {
	first := msgs[0]
	message := first.Text
	if len(msgs) > 1 {
		message = fmt.Sprintf("%s (and %d more errors)", message, len(msgs)-1)
	}

	err := builderrors.NewCompileError(builderrors.ErrCodeScriptBundle, message, nil)
	if first.Location != nil {
		return err.WithLocation(first.Location.File, first.Location.Line, first.Location.Column+1)
	}
	return err.WithLocation(entry, 0, 0)
}
