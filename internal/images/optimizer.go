// Package images recompresses image assets before they are published:
// PNG and GIF are re-encoded, SVG is minified, JPEG is copied unchanged.
package images

import (
	"bytes"
	"fmt"
	"image/gif"
	"image/png"
	"path"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
)

// Result describes one optimized image.
type Result struct {
	Data         []byte
	OriginalSize int
	// Optimized is false when the source bytes were kept as they were.
	Optimized bool
}

// Saved returns the number of bytes removed.
func (r Result) Saved() int {
	return r.OriginalSize - len(r.Data)
}

// Optimizer applies the per-format optimization.
type Optimizer struct {
	pngLevel   png.CompressionLevel
	svgMinify  bool
	keepLarger bool
	m          *minify.M
}

// NewOptimizer creates an optimizer from image configuration.
func NewOptimizer(cfg config.ImagesConfig) *Optimizer {
	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)

	return &Optimizer{
		pngLevel:   pngLevel(cfg.PNGCompression),
		svgMinify:  cfg.SVGMinify,
		keepLarger: cfg.KeepLarger,
		m:          m,
	}
}

func pngLevel(name string) png.CompressionLevel {
	switch name {
	case "best":
		return png.BestCompression
	case "speed":
		return png.BestSpeed
	case "none":
		return png.NoCompression
	default:
		return png.DefaultCompression
	}
}

// Optimize returns the optimized bytes for the file called name. Output is
// never larger than the input unless keep_larger is set.
func (o *Optimizer) Optimize(name string, data []byte) (Result, error) {
	var (
		out []byte
		err error
	)

	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		out, err = o.optimizePNG(data)
	case ".gif":
		out, err = o.optimizeGIF(data)
	case ".svg":
		if !o.svgMinify {
			return unchanged(data), nil
		}
		out, err = o.m.Bytes("image/svg+xml", data)
	default:
		return unchanged(data), nil
	}

	if err != nil {
		return Result{}, builderrors.NewCompileError(builderrors.ErrCodeImageOptimize,
			fmt.Sprintf("optimizing image: %v", err), err).WithLocation(name, 0, 0)
	}

	if len(out) >= len(data) && !o.keepLarger {
		return unchanged(data), nil
	}
	return Result{Data: out, OriginalSize: len(data), Optimized: true}, nil
}

func unchanged(data []byte) Result {
	return Result{Data: data, OriginalSize: len(data)}
}

func (o *Optimizer) optimizePNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: o.pngLevel}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Optimizer) optimizeGIF(data []byte) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
