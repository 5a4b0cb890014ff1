//go:build property

package config

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestValidationProperties checks the bounds Validate enforces.
func TestValidationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2024)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("ports are accepted exactly within 0-65535", prop.ForAll(
		func(port int) bool {
			cfg, err := Default(t.TempDir())
			if err != nil {
				return false
			}
			cfg.Server.Port = port
			err = Validate(cfg)
			return (err == nil) == (port >= 0 && port <= 65535)
		},
		gen.IntRange(-1000, 70000),
	))

	properties.Property("clean paths never escape the root", prop.ForAll(
		func(segments []string, ups int) bool {
			p := strings.Repeat("../", ups) + strings.Join(segments, "/")
			err := validateRelative(p)
			if ups > 0 && ups >= len(segments) {
				return err != nil
			}
			if ups == 0 && len(segments) > 0 {
				return err == nil
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.IntRange(0, 3),
	))

	properties.Property("absolute clean paths are rejected", prop.ForAll(
		func(name string) bool {
			return validateRelative("/"+name) != nil
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
