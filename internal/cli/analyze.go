package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/factchecker/veritas/internal/analysis"
	"github.com/factchecker/veritas/internal/models"
	"github.com/factchecker/veritas/internal/presentation"
	"github.com/spf13/cobra"
)

var (
	analyzeType   string
	analyzeText   string
	analyzeURL    string
	analyzeFile   string
	analyzeAsJSON bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Submit content to the detection service",
	Long: `Analyze sends one piece of content to the detection service, prints the
verdict and records it in the history.

Example:
  veritas analyze --type text --text "The moon landing was staged"
  veritas analyze --type audio --file speech.wav
  veritas analyze --type video --url https://youtube.com/watch?v=abc
  veritas analyze --type video --file clip.mp4 --json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeType, "type", "t", "text", "content type (text, audio, video)")
	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "text to analyze")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "video URL to analyze")
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "file to upload")
	analyzeCmd.Flags().BoolVar(&analyzeAsJSON, "json", false, "print the result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	in := analysis.Input{Modality: models.Modality(analyzeType), Text: analyzeText}
	// --url fills the URL field, which only the video form shows
	if strings.TrimSpace(analyzeURL) != "" && (in.Modality != models.ModalityText || strings.TrimSpace(in.Text) == "") {
		in.Text = analyzeURL
	}

	if analyzeFile != "" {
		f, err := os.Open(analyzeFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", analyzeFile, err)
		}
		defer f.Close()
		in.File = &analysis.FileInput{Name: filepath.Base(analyzeFile), Content: f}
	}

	return withApp(cmd.Context(), func(a *app) error {
		result, err := a.orchestrator.Analyze(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("%s: %w", analysis.UserNotice(err), err)
		}

		out := cmd.OutOrStdout()
		if analyzeAsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printCard(out, presentation.Render(*result))
		return nil
	})
}

func printCard(w io.Writer, c presentation.Card) {
	fmt.Fprintf(w, "%s  %s  [%s]\n", c.ModalityLabel, c.Source, c.VerdictLabel)
	fmt.Fprintf(w, "  Confidence: %s\n", c.OverallText)
	for _, line := range c.Components {
		fmt.Fprintf(w, "  %s: %s (%s)\n", line.Name, line.Label, line.Confidence)
	}
	if c.RiskFactors != "" {
		fmt.Fprintf(w, "  Risk factors: %s\n", c.RiskFactors)
	}
	fmt.Fprintf(w, "  %s  id=%s\n", c.Date, c.ID)
}
