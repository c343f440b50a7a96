package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeDetach bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Start a comment analysis run",
	Long: `Start an asynchronous analysis run on the server.

The run structures unprocessed comments into statements, builds a temporary
knowledge store per dataset, and scores every statement against it. By
default the command follows the job's log until it finishes; use --detach
to print the job ID and return immediately.

Examples:
  veridata analyze            # Start and follow until done
  veridata analyze --detach   # Start and return the job ID`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeDetach, "detach", "d", false, "start the job and return immediately")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	jobID, err := apiClient.StartAnalysis(ctx)
	if err != nil {
		return fmt.Errorf("start analysis: %w", err)
	}

	if analyzeDetach {
		fmt.Printf("Started analysis job %s\n", jobID)
		fmt.Printf("Use 'veridata jobs %s' to check status.\n", jobID)
		return nil
	}

	return RunJobWatch(apiClient, jobID)
}
