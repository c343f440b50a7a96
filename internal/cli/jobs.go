package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/veridata-go/internal/models"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect background jobs",
	Long: `List all background jobs or inspect a specific job by ID.

Examples:
  veridata jobs           # List all jobs
  veridata jobs abc123    # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}

	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-10s %-12s %s\n", "ID", "KIND", "STATUS", "STARTED")
	fmt.Println("--------------------------------------------------")

	for _, job := range jobs {
		fmt.Printf("%-10s %-10s %-12s %s\n", job.ID, job.Kind, job.Status, job.Started.Format("15:04:05"))
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient.JobInfo(ctx, id, -1)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Kind: %s\n", job.Kind)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Started: %s\n", job.Started.Format(time.RFC3339))
	if job.Completed != nil {
		fmt.Printf("  Completed: %s\n", job.Completed.Format(time.RFC3339))
		fmt.Printf("  Duration: %s\n", job.Completed.Sub(job.Started).Round(time.Second))
	}
	if job.CancelRequested && !job.IsComplete {
		fmt.Println("  Cancellation requested")
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}

	if len(job.Logs) > 0 {
		fmt.Println("\nLog:")
		for _, entry := range job.Logs {
			printLogEntry(entry)
		}
	}

	return nil
}

func printLogEntry(entry models.JobLogEntry) {
	if entry.Level == models.LogDebug && !verbose {
		return
	}
	fmt.Printf("  %s [%s] %s\n", entry.Time.Format("15:04:05"), entry.Level, entry.Message)
}
