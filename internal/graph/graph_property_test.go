//go:build property

package graph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/assetforge/internal/config"
)

// TestRunnerProperties validates ordering and failure semantics of composites.
func TestRunnerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("series never runs tasks after the first failure", prop.ForAll(
		func(failures []bool) bool {
			var executed atomic.Int32
			nodes := make([]Node, len(failures))
			for i, fail := range failures {
				nodes[i] = Leaf(NewTask("t", func(ctx context.Context, cfg *config.Config) (Artifacts, error) {
					executed.Add(1)
					if fail {
						return nil, errors.New("fail")
					}
					return nil, nil
				}))
			}

			err := NewRunner(nil, nil).Run(context.Background(), Series(nodes...))

			firstFailure := -1
			for i, fail := range failures {
				if fail {
					firstFailure = i
					break
				}
			}
			if firstFailure < 0 {
				return err == nil && int(executed.Load()) == len(failures)
			}
			return err != nil && int(executed.Load()) == firstFailure+1
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("parallel runs every task regardless of failures", prop.ForAll(
		func(failures []bool) bool {
			var executed atomic.Int32
			anyFailed := false
			nodes := make([]Node, len(failures))
			for i, fail := range failures {
				anyFailed = anyFailed || fail
				nodes[i] = Leaf(NewTask("t", func(ctx context.Context, cfg *config.Config) (Artifacts, error) {
					executed.Add(1)
					if fail {
						return nil, errors.New("fail")
					}
					return nil, nil
				}))
			}

			err := NewRunner(nil, nil).Run(context.Background(), Parallel(nodes...))
			return int(executed.Load()) == len(failures) && (err != nil) == anyFailed
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
