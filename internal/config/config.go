// Package config provides configuration management for assetforge using
// Viper for loading from files, environment variables, and command-line flags.
//
// The configuration is loaded once at startup into an immutable Config value
// that is passed by pointer to every task, the watch registry, and the dev
// server. Nothing in this package keeps global state.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultProxyTarget is the proxy target used when --path is not given.
const DefaultProxyTarget = "themrish.local"

// DefaultBrowsers are the autoprefixer targets used when neither the config
// file nor package.json specify any.
var DefaultBrowsers = []string{
	"last 2 versions",
	"> 5%",
	"ie = 11",
	"ios >= 8",
	"and_chr >= 5",
	"Android >= 5",
}

type Config struct {
	Root       string           `mapstructure:"root" yaml:"root"`
	Paths      PathsConfig      `mapstructure:"paths" yaml:"paths"`
	Styles     StylesConfig     `mapstructure:"styles" yaml:"styles"`
	Scripts    ScriptsConfig    `mapstructure:"scripts" yaml:"scripts"`
	Images     ImagesConfig     `mapstructure:"images" yaml:"images"`
	Styleguide StyleguideConfig `mapstructure:"styleguide" yaml:"styleguide"`
	DevCopy    DevCopyConfig    `mapstructure:"devcopy" yaml:"devcopy"`
	Clean      []string         `mapstructure:"clean" yaml:"clean"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Watch      WatchConfig      `mapstructure:"watch" yaml:"watch"`
	Notify     NotifyConfig     `mapstructure:"notify" yaml:"notify"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// PathsConfig holds the source globs and output directories.
type PathsConfig struct {
	HTML    string `mapstructure:"html" yaml:"html"`
	Styles  string `mapstructure:"styles" yaml:"styles"`
	Scripts string `mapstructure:"scripts" yaml:"scripts"`
	Images  string `mapstructure:"images" yaml:"images"`
	CSSDest string `mapstructure:"css_dest" yaml:"css_dest"`
	JSDest  string `mapstructure:"js_dest" yaml:"js_dest"`
	ImgDest string `mapstructure:"img_dest" yaml:"img_dest"`
}

type StylesConfig struct {
	OutputStyle  string   `mapstructure:"output_style" yaml:"output_style"`
	IncludePaths []string `mapstructure:"include_paths" yaml:"include_paths"`
	Browsers     []string `mapstructure:"browsers" yaml:"browsers"`
	SourceMaps   bool     `mapstructure:"source_maps" yaml:"source_maps"`
	Minify       bool     `mapstructure:"minify" yaml:"minify"`
	Compiler     string   `mapstructure:"compiler" yaml:"compiler"`
	Autoprefixer []string `mapstructure:"autoprefixer" yaml:"autoprefixer"`
}

type ScriptsConfig struct {
	Entry      string   `mapstructure:"entry" yaml:"entry"`
	Bundle     string   `mapstructure:"bundle" yaml:"bundle"`
	SourceMaps bool     `mapstructure:"source_maps" yaml:"source_maps"`
	Minify     bool     `mapstructure:"minify" yaml:"minify"`
	Target     string   `mapstructure:"target" yaml:"target"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
}

type ImagesConfig struct {
	PNGCompression string `mapstructure:"png_compression" yaml:"png_compression"`
	SVGMinify      bool   `mapstructure:"svg_minify" yaml:"svg_minify"`
	KeepLarger     bool   `mapstructure:"keep_larger" yaml:"keep_larger"`
}

type StyleguideConfig struct {
	Title      string `mapstructure:"title" yaml:"title"`
	Base       string `mapstructure:"base" yaml:"base"`
	Components string `mapstructure:"components" yaml:"components"`
	Docs       string `mapstructure:"docs" yaml:"docs"`
	Dest       string `mapstructure:"dest" yaml:"dest"`
}

// DevCopyConfig controls which sources are mirrored into the style-guide
// component tree.
type DevCopyConfig struct {
	Sources    []string `mapstructure:"sources" yaml:"sources"`
	Exclude    []string `mapstructure:"exclude" yaml:"exclude"`
	Components string   `mapstructure:"components" yaml:"components"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	Mode        string `mapstructure:"mode" yaml:"mode"`
	ProxyTarget string `mapstructure:"proxy_target" yaml:"proxy_target"`
	StartPath   string `mapstructure:"start_path" yaml:"start_path"`
	Notify      bool   `mapstructure:"notify" yaml:"notify"`
	Open        bool   `mapstructure:"open" yaml:"open"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Ignore   []string      `mapstructure:"ignore" yaml:"ignore"`
}

type NotifyConfig struct {
	Desktop bool   `mapstructure:"desktop" yaml:"desktop"`
	Title   string `mapstructure:"title" yaml:"title"`
	Message string `mapstructure:"message" yaml:"message"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Server modes.
const (
	ModeStatic = "static"
	ModeProxy  = "proxy"
)

// SetDefaults registers every default on v. Browsers are intentionally left
// unset so that package.json can supply them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", "./")

	v.SetDefault("paths.html", "**/*.html")
	v.SetDefault("paths.styles", "src/styles/**/*.scss")
	v.SetDefault("paths.scripts", "src/scripts/**/*.js")
	v.SetDefault("paths.images", "src/images/**/*.{jpg,jpeg,png,svg,gif}")
	v.SetDefault("paths.css_dest", "css")
	v.SetDefault("paths.js_dest", "js")
	v.SetDefault("paths.img_dest", "images")

	v.SetDefault("styles.output_style", "expanded")
	v.SetDefault("styles.include_paths", []string{"src/styles"})
	v.SetDefault("styles.source_maps", true)
	v.SetDefault("styles.minify", false)
	v.SetDefault("styles.compiler", "sass")
	v.SetDefault("styles.autoprefixer", []string{"postcss", "--use", "autoprefixer", "--no-map"})

	v.SetDefault("scripts.entry", "src/scripts/main.js")
	v.SetDefault("scripts.bundle", "bundle.js")
	v.SetDefault("scripts.source_maps", true)
	v.SetDefault("scripts.minify", false)
	v.SetDefault("scripts.target", "es2015")
	v.SetDefault("scripts.extensions", []string{".js"})

	v.SetDefault("images.png_compression", "best")
	v.SetDefault("images.svg_minify", true)
	v.SetDefault("images.keep_larger", false)

	v.SetDefault("styleguide.title", "Style guide")
	v.SetDefault("styleguide.base", "src/styleguide")
	v.SetDefault("styleguide.components", "src/styleguide/components")
	v.SetDefault("styleguide.docs", "src/styleguide/docs")
	v.SetDefault("styleguide.dest", "styleguide")

	v.SetDefault("devcopy.sources", []string{"src/styles/**/*.scss", "src/scripts/**/*.js"})
	v.SetDefault("devcopy.exclude", []string{
		"src/scripts/main.js",
		"src/scripts/config.js",
		"src/styles/foundation/*.scss",
		"src/styles/style.scss",
	})
	v.SetDefault("devcopy.components", "src/styles/object/component/*.scss")

	v.SetDefault("clean", []string{"src/styleguide/components", "styleguide"})

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", ModeStatic)
	v.SetDefault("server.proxy_target", DefaultProxyTarget)
	v.SetDefault("server.start_path", "/")
	v.SetDefault("server.notify", true)
	v.SetDefault("server.open", false)

	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("watch.ignore", []string{"node_modules", ".git"})

	v.SetDefault("notify.desktop", true)
	v.SetDefault("notify.title", "Error")
	v.SetDefault("notify.message", "Check your terminal")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load builds a validated Config from v. Defaults must already be registered
// with SetDefaults.
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if config.Root == "" {
		config.Root = "./"
	}

	if len(config.Styles.Browsers) == 0 {
		browsers, err := BrowsersFromPackageJSON(filepath.Join(config.Root, "package.json"))
		if err != nil {
			return nil, fmt.Errorf("reading browserslist: %w", err)
		}
		if len(browsers) > 0 {
			config.Styles.Browsers = browsers
		} else {
			config.Styles.Browsers = append([]string(nil), DefaultBrowsers...)
		}
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by defaults alone, rooted at root.
func Default(root string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.Set("root", root)
	return Load(v)
}

// Path resolves a root-relative path.
func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, filepath.FromSlash(strings.TrimPrefix(rel, "./")))
}

// ProxyURL returns the proxy target as an absolute http URL string.
func (c *Config) ProxyURL() string {
	target := c.Server.ProxyTarget
	if strings.Contains(target, "://") {
		return target
	}
	return "http://" + target
}
