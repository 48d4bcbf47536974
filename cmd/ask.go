package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question and print the report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := buildOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := orch.Handle(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if askJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(os.Stdout, report)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the report as JSON")
}

func printReport(w io.Writer, r contractx.Report) {
	fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(r.Summary))

	fmt.Fprintln(w, "Analysts:")
	for _, f := range r.Findings {
		fmt.Fprintf(w, "  %-20s %-8s %s\n", f.Name, f.Status, f.Latency.Round(time.Millisecond))
	}
	if len(r.Caveats) > 0 {
		fmt.Fprintln(w, "\nCaveats:")
		for _, c := range r.Caveats {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}

	fmt.Fprintf(w, "\nConfidence: %s (%.2f)", r.ConfidenceLevel, r.Confidence)
	if r.Fallback {
		fmt.Fprint(w, " [templated summary]")
	}
	fmt.Fprintf(w, "\nRequest %s answered in %s\n", r.RequestID, r.Elapsed.Round(time.Millisecond))
}
