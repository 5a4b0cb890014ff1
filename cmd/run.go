package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetforge/internal/config"
	"github.com/conneroisu/assetforge/internal/notify"
	"github.com/conneroisu/assetforge/internal/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run a named task graph",
	Long: `Run one of the named task graphs. Without a task the default graph runs.

Tasks:
  default      compile styles and scripts, then watch and serve the project
  build        clean, copy component sources and render the style guide
  styleguide   build the style guide, then watch and serve it
  clean        remove generated style-guide output
  css          compile stylesheets
  js           bundle scripts
  imagemcopy   optimize images
  devcopy      clean and copy component sources into the style guide

Graphs that watch or serve keep running until interrupted. Compile errors
inside them are reported and do not stop the session.

Examples:
  assetforge run                       # default graph
  assetforge run build                 # one-shot style guide build
  assetforge run --path mysite.local   # proxy mysite.local with live reload`,
	Args: cobra.MaximumNArgs(1),
	ValidArgs: []string{
		orchestrator.GraphDefault, orchestrator.GraphBuild, orchestrator.GraphStyleguide,
		orchestrator.GraphClean, orchestrator.GraphCSS, orchestrator.GraphJS,
		orchestrator.GraphImages, orchestrator.GraphDevCopy,
	},
	RunE: runTask,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("path", config.DefaultProxyTarget, "proxy target for the dev server; passing it switches the server to proxy mode")
}

func runTask(cmd *cobra.Command, args []string) error {
	name := orchestrator.GraphDefault
	if len(args) == 1 {
		name = args[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	o := orchestrator.New(cfg, logger,
		orchestrator.WithNotifier(notify.FromConfig(cfg, cmd.ErrOrStderr(), logger)),
	)
	return o.Run(ctx, name)
}
