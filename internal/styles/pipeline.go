package styles

import (
	"context"

	"github.com/conneroisu/assetforge/internal/config"
	"github.com/conneroisu/assetforge/internal/logging"
)

// Pipeline compiles a source and runs each post-processor over the result.
type Pipeline struct {
	compiler Compiler
	post     []PostProcessor
	opts     Options
}

// NewPipeline creates a pipeline. Post-processors run in order.
func NewPipeline(compiler Compiler, opts Options, post ...PostProcessor) *Pipeline {
	return &Pipeline{compiler: compiler, post: post, opts: opts}
}

// FromConfig builds the configured pipeline around compiler. A missing
// prefixer command is logged and skipped rather than failing every build.
func FromConfig(ctx context.Context, cfg *config.Config, compiler Compiler, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if compiler == nil {
		compiler = NewSassCompiler(cfg.Styles.Compiler)
	}

	var post []PostProcessor
	if prefixer := NewPrefixer(cfg.Styles.Autoprefixer, cfg.Styles.Browsers); prefixer.Available() {
		post = append(post, prefixer)
	} else if len(cfg.Styles.Autoprefixer) > 0 {
		logger.Warn(ctx, nil, "autoprefixer command not found, CSS will not be prefixed",
			"command", cfg.Styles.Autoprefixer[0])
	}
	if cfg.Styles.Minify {
		post = append(post, NewMinifier())
	}

	return NewPipeline(compiler, Options{
		OutputStyle: cfg.Styles.OutputStyle,
		LoadPaths:   cfg.Styles.IncludePaths,
		SourceMap:   cfg.Styles.SourceMaps,
	}, post...)
}

// Build compiles src (relative to root) into final CSS.
func (p *Pipeline) Build(ctx context.Context, root, src string) ([]byte, error) {
	out, err := p.compiler.Compile(ctx, root, src, p.opts)
	if err != nil {
		return nil, err
	}
	for _, pp := range p.post {
		if out, err = pp.Process(ctx, root, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
