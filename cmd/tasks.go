package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetforge/internal/orchestrator"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"ls"},
	Short:   "List the task graphs",
	RunE:    runTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	o := orchestrator.New(cfg, nil)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, name := range o.Tasks() {
		g, err := o.Graph(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", name, g)
	}
	return w.Flush()
}
