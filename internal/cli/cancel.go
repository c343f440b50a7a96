package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Request cancellation of a running job",
	Long: `Request cancellation of a running background job.

Cancellation is cooperative: the job stops at its next checkpoint, so
in-flight work for the current statement may still finish.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	accepted, err := apiClient.CancelJob(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}

	if !accepted {
		fmt.Printf("Job %s is not running (unknown or already finished)\n", args[0])
		return nil
	}

	fmt.Printf("Cancellation requested for job %s\n", args[0])
	fmt.Printf("Use 'veridata jobs %s' to confirm it stopped.\n", args[0])
	return nil
}
