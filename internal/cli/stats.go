package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/veridata-go/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server runtime statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := apiClient.Health(ctx); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	snap, err := apiClient.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}

	uptime := time.Duration(snap.UptimeSeconds * float64(time.Second)).Round(time.Second)
	fmt.Printf("Uptime: %s\n\n", uptime)

	printed := false
	printed = printOperation("Structuring", snap.Structure) || printed
	printed = printOperation("Verification", snap.Verify) || printed
	printed = printOperation("Resource fetch", snap.ResourceFetch) || printed
	printed = printOperation("File upload", snap.Upload) || printed
	printed = printOperation("Store polling", snap.StorePoll) || printed

	if !printed {
		fmt.Println("No operations recorded yet")
	}

	return nil
}

func printOperation(label string, op *metrics.OperationSnapshot) bool {
	if op == nil {
		return false
	}

	fmt.Printf("%s:\n", label)
	fmt.Printf("  Count:    %d (%d failed)\n", op.Count, op.Failures)
	fmt.Printf("  Avg time: %.0fms\n", op.AvgTimeMs)
	fmt.Printf("  Min/Max:  %dms / %dms\n", op.MinTimeMs, op.MaxTimeMs)
	return true
}
