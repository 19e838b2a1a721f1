// Command ingressd serves the enrollment dashboard API and runs one-off
// ingestion and maintenance tasks against the canonical store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ingressd",
	Short: "Enrollment data ingestion and aggregation service.",
	Long: `Enrollment data ingestion and aggregation service.

Configuration is read from the environment, optionally preloaded from a
.env file. Run the HTTP API with:

	ingressd serve

or load a file directly:

	ingressd ingest enrollment ./cleaned.csv
`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional file of environment variables")
	rootCmd.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newClearCmd(),
		newSyncWarehouseCmd(),
		newVerifyCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
