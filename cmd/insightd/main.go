// Insightd is a temporal organizational pattern daemon.
//
// It ingests per-meeting analysis records, clusters recurring signals into
// long-lived patterns, and serves pattern, forecast, and anomaly queries
// over HTTP.
//
// Usage:
//
//	# Start the daemon with defaults
//	insightd serve
//
//	# Start with a config file and env overrides
//	INSIGHTD_SERVER_PORT=9090 insightd serve --config insightd.yaml
//
//	# Ingest a record file against a running daemon
//	insightd ingest meeting.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	serverURL  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "insightd",
	Short: "Temporal organizational pattern daemon",
	Long: `insightd ingests structured meeting analysis records, detects recurring
organizational patterns across meetings, and serves forecasts and anomaly
reports over HTTP.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(versionCmd)

	ingestCmd.Flags().StringVar(&serverURL, "server", "", "daemon URL; omit to ingest in-process")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("insightd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}
