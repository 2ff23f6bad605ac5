package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/factchecker/veritas/internal/history"
	"github.com/factchecker/veritas/internal/models"
	"github.com/factchecker/veritas/internal/presentation"
	"github.com/spf13/cobra"
)

var (
	historySearch  string
	historyType    string
	historyResult  string
	historySummary bool
	historyExport  string
	historyImport  string
	historyClear   bool
	historyAsJSON  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Search, export or restore the analysis history",
	Long: `History lists stored results, most recent first, narrowed by an optional
search term, content type and verdict.

Example:
  veritas history
  veritas history --search interview --type video --result fake
  veritas history --summary
  veritas history --export .            # writes veritas-history-YYYY-MM-DD.json
  veritas history --import backup.json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historySearch, "search", "s", "", "case-insensitive match on the source")
	historyCmd.Flags().StringVar(&historyType, "type", "", "content type (text, audio, video)")
	historyCmd.Flags().StringVar(&historyResult, "result", "", "verdict (authentic, fake)")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "print totals and mean confidence")
	historyCmd.Flags().StringVar(&historyExport, "export", "", "write the history to this file or directory")
	historyCmd.Flags().StringVar(&historyImport, "import", "", "replace the history with this export file")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete every stored result")
	historyCmd.Flags().BoolVar(&historyAsJSON, "json", false, "print results as JSON")

	historyCmd.MarkFlagsMutuallyExclusive("summary", "export", "import", "clear")
}

func runHistory(cmd *cobra.Command, args []string) error {
	filter := models.HistoryFilter{
		Search:   historySearch,
		Modality: models.Modality(historyType),
		Verdict:  models.Verdict(historyResult),
	}
	if filter.Modality != "" && !filter.Modality.Valid() {
		return fmt.Errorf("unknown type %q", historyType)
	}
	if filter.Verdict != "" && !filter.Verdict.Valid() {
		return fmt.Errorf("unknown result %q", historyResult)
	}

	return withApp(cmd.Context(), func(a *app) error {
		out := cmd.OutOrStdout()

		switch {
		case historyClear:
			if err := a.history.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, "History cleared")
			return nil

		case historyImport != "":
			f, err := os.Open(historyImport)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", historyImport, err)
			}
			defer f.Close()
			if err := a.history.Import(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d results\n", a.history.Len())
			return nil

		case historyExport != "":
			path, err := exportHistory(a.history, historyExport, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported %d results to %s\n", a.history.Len(), path)
			return nil

		case historySummary:
			printSummary(out, a.history.ComputeSummary())
			return nil
		}

		results := a.history.Filter(filter)
		if historyAsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No results")
			return nil
		}
		for _, card := range presentation.RenderAll(results) {
			printCard(out, card)
		}
		return nil
	})
}

// exportHistory writes the export to dest, or into dest under the dated
// export name when dest is a directory.
func exportHistory(store *history.Store, dest string, now time.Time) (path string, err error) {
	path = dest
	if info, statErr := os.Stat(dest); statErr == nil && info.IsDir() {
		path = filepath.Join(dest, history.ExportFileName(now))
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close export file: %w", closeErr)
		}
	}()

	if err := store.Export(f); err != nil {
		return "", err
	}
	return path, nil
}

func printSummary(w io.Writer, s models.HistorySummary) {
	fmt.Fprintf(w, "Total:           %d\n", s.Total)
	fmt.Fprintf(w, "Authentic:       %d\n", s.Authentic)
	fmt.Fprintf(w, "Suspicious:      %d\n", s.Fake)
	fmt.Fprintf(w, "Mean confidence: %d%%\n", s.MeanConfidence)
}
