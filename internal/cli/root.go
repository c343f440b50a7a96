// Package cli provides the command-line interface for veridata.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/veridata-go/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	// apiClient talks to a running veridata server. Initialized lazily so
	// `serve` and `version` never touch it.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "veridata",
	Short: "Comment analysis pipeline for open-data portals",
	Long: `Veridata turns free-text user comments on open-data datasets into
categorized, verifiable statements.

Comments are structured by an LLM, each dataset's resource files are
indexed into a temporary knowledge store, and every statement is checked
against that store to produce an acceptance score per comment.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(serverURL)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "veridata server URL (default $VERIDATA_SERVER_URL or http://localhost:8585)")
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
