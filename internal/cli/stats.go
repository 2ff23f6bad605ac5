package cli

import (
	"fmt"

	"github.com/factchecker/veritas/internal/presentation"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the aggregate accuracy and content-analyzed figures",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			view := presentation.RenderStats(a.stats.Snapshot())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accuracy:         %s\n", view.Accuracy)
			fmt.Fprintf(out, "Content analyzed: %s\n", view.ContentAnalyzed)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
