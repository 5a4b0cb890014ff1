package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/assetforge/internal/validation"
)

var (
	outputStyles  = map[string]bool{"expanded": true, "compact": true, "compressed": true}
	serverModes   = map[string]bool{ModeStatic: true, ModeProxy: true}
	scriptTargets = map[string]bool{
		"es5": true, "es2015": true, "es2016": true, "es2017": true, "es2018": true,
		"es2019": true, "es2020": true, "es2021": true, "es2022": true, "es2023": true,
		"esnext": true,
	}
	pngCompression = map[string]bool{"default": true, "best": true, "speed": true, "none": true}
)

// Validate checks configuration values for correctness.
func Validate(config *Config) error {
	if err := validatePaths(&config.Paths); err != nil {
		return fmt.Errorf("paths: %w", err)
	}

	if !outputStyles[config.Styles.OutputStyle] {
		return fmt.Errorf("styles: unknown output_style %q", config.Styles.OutputStyle)
	}
	if config.Styles.Compiler == "" {
		return fmt.Errorf("styles: compiler cannot be empty")
	}
	for _, p := range config.Styles.IncludePaths {
		if err := validation.ValidateLoadPath(p); err != nil {
			return fmt.Errorf("styles: include_paths: %w", err)
		}
	}

	if config.Scripts.Entry == "" || config.Scripts.Bundle == "" {
		return fmt.Errorf("scripts: entry and bundle are required")
	}
	if !scriptTargets[strings.ToLower(config.Scripts.Target)] {
		return fmt.Errorf("scripts: unknown target %q", config.Scripts.Target)
	}

	if !pngCompression[config.Images.PNGCompression] {
		return fmt.Errorf("images: unknown png_compression %q", config.Images.PNGCompression)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	for _, p := range config.Clean {
		if err := validateRelative(p); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}
	for _, p := range []string{config.Styleguide.Base, config.Styleguide.Dest, config.Styleguide.Components} {
		if err := validateRelative(p); err != nil {
			return fmt.Errorf("styleguide: %w", err)
		}
	}

	for _, pattern := range append(append([]string{config.DevCopy.Components}, config.DevCopy.Sources...), config.DevCopy.Exclude...) {
		if !doublestar.ValidatePattern(strings.TrimPrefix(pattern, "./")) {
			return fmt.Errorf("devcopy: invalid pattern %q", pattern)
		}
	}

	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch: debounce cannot be negative")
	}

	return nil
}

func validatePaths(paths *PathsConfig) error {
	globs := map[string]string{
		"html":    paths.HTML,
		"styles":  paths.Styles,
		"scripts": paths.Scripts,
		"images":  paths.Images,
	}
	for name, pattern := range globs {
		if pattern == "" {
			return fmt.Errorf("%s pattern cannot be empty", name)
		}
		if !doublestar.ValidatePattern(strings.TrimPrefix(pattern, "./")) {
			return fmt.Errorf("%s pattern %q is invalid", name, pattern)
		}
	}

	for name, dir := range map[string]string{"css_dest": paths.CSSDest, "js_dest": paths.JSDest, "img_dest": paths.ImgDest} {
		if err := validateRelative(dir); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// 0 lets the OS pick a port, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if !serverModes[config.Mode] {
		return fmt.Errorf("unknown mode %q", config.Mode)
	}

	if config.Mode == ModeProxy && config.ProxyTarget == "" {
		return fmt.Errorf("proxy mode requires proxy_target")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	if config.StartPath != "" && !strings.HasPrefix(config.StartPath, "/") {
		return fmt.Errorf("start_path must begin with /")
	}

	return nil
}

// validateRelative rejects paths that would let a destructive task reach
// outside the project root.
func validateRelative(p string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("path should be relative: %s", p)
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == "." {
		return fmt.Errorf("path cannot be the project root: %s", p)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", p)
	}
	return nil
}
