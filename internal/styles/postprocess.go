package styles

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/conneroisu/assetforge/internal/validation"
)

// PostProcessor rewrites compiled CSS.
type PostProcessor interface {
	Process(ctx context.Context, root string, input []byte) ([]byte, error)
}

// Prefixer pipes CSS through a postcss command with the autoprefixer plugin.
// The browser list is passed in the BROWSERSLIST environment variable.
type Prefixer struct {
	command  string
	args     []string
	browsers []string
}

// NewPrefixer creates a prefixer from a command line such as
// ["postcss", "--use", "autoprefixer", "--no-map"].
func NewPrefixer(commandLine, browsers []string) *Prefixer {
	p := &Prefixer{browsers: browsers}
	if len(commandLine) > 0 {
		p.command = commandLine[0]
		p.args = append([]string(nil), commandLine[1:]...)
	}
	return p
}

// Available reports whether the prefixer command can be found.
func (p *Prefixer) Available() bool {
	if p.command == "" {
		return false
	}
	_, err := exec.LookPath(p.command)
	return err == nil
}

// Process runs the prefixer over input.
func (p *Prefixer) Process(ctx context.Context, root string, input []byte) ([]byte, error) {
	if err := validation.ValidateCommandLine(p.command, p.args); err != nil {
		return nil, fmt.Errorf("refusing to run prefixer: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Dir = root
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = append(os.Environ(), "BROWSERSLIST="+strings.Join(p.browsers, ", "))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", p.command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Minifier compresses CSS with tdewolff/minify.
type Minifier struct {
	m *minify.M
}

// NewMinifier creates a CSS minifier.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	return &Minifier{m: m}
}

// Process minifies input.
func (mn *Minifier) Process(_ context.Context, _ string, input []byte) ([]byte, error) {
	out, err := mn.m.Bytes("text/css", input)
	if err != nil {
		return nil, fmt.Errorf("minifying css: %w", err)
	}
	return out, nil
}
