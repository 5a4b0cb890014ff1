// Package styles compiles Sass sources into CSS: the Sass CLI does the
// compilation, an optional postcss step adds vendor prefixes, and
// tdewolff/minify can compress the result.
package styles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"

	builderrors "github.com/conneroisu/assetforge/internal/errors"
	"github.com/conneroisu/assetforge/internal/validation"
)

// Options control a single compilation.
type Options struct {
	// OutputStyle is expanded, compact or compressed.
	OutputStyle string
	// LoadPaths are root-relative directories searched by @use and @import.
	LoadPaths []string
	SourceMap bool
}

// Compiler turns one Sass entry point into CSS. src is relative to root.
type Compiler interface {
	Compile(ctx context.Context, root, src string, opts Options) ([]byte, error)
}

// SassStyle maps a configured output style onto a dart-sass --style value.
// dart-sass has no compact style, so compact compresses.
func SassStyle(style string) string {
	switch style {
	case "compact", "compressed":
		return "compressed"
	default:
		return "expanded"
	}
}

// IsPartial reports whether a Sass file is a partial that is only ever
// imported and never compiled on its own.
func IsPartial(p string) bool {
	return strings.HasPrefix(path.Base(p), "_")
}

// SassCompiler runs the dart-sass command line compiler.
type SassCompiler struct {
	command string
}

// NewSassCompiler creates a compiler invoking command ("sass" when empty).
func NewSassCompiler(command string) *SassCompiler {
	if command == "" {
		command = "sass"
	}
	return &SassCompiler{command: command}
}

// Compile runs the Sass CLI in root and returns the CSS it prints.
func (c *SassCompiler) Compile(ctx context.Context, root, src string, opts Options) ([]byte, error) {
	args := c.args(src, opts)
	if err := validation.ValidateCommandLine(c.command, args); err != nil {
		return nil, builderrors.NewConfigError(builderrors.ErrCodeConfigInvalid,
			fmt.Sprintf("refusing to run %s: %v", c.command, err))
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Dir = root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sass compile of %s interrupted: %w", src, ctx.Err())
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, builderrors.NewCompileError(builderrors.ErrCodeToolMissing,
				fmt.Sprintf("%s not found on PATH; install dart-sass", c.command), err).
				WithLocation(src, 0, 0)
		}
		return nil, compileError(src, stderr.String(), err)
	}

	return stdout.Bytes(), nil
}

func (c *SassCompiler) args(src string, opts Options) []string {
	args := []string{"--no-color", "--style=" + SassStyle(opts.OutputStyle)}
	for _, p := range opts.LoadPaths {
		args = append(args, "--load-path="+p)
	}
	if opts.SourceMap {
		args = append(args, "--embed-source-map", "--embed-sources")
	} else {
		args = append(args, "--no-source-map")
	}
	return append(args, src)
}

// compileError converts Sass diagnostics into a CompileError pointing at
// the offending file, which may be a partial rather than src.
func compileError(src, output string, cause error) *builderrors.BuildError {
	loc, found := builderrors.ParseCompilerOutput(output)

	message := loc.Message
	if message == "" {
		message = strings.TrimSpace(output)
	}
	if message == "" {
		message = cause.Error()
	}

	file := src
	if found && loc.File != "" {
		file = loc.File
	}

	return builderrors.NewCompileError(builderrors.ErrCodeStyleCompile, message, cause).
		WithLocation(file, loc.Line, loc.Column)
}
