// Command atelier-demo drives pkg/demoproject end to end: a local mode
// that opens and ticks a project against a bolt-backed block store, a
// server mode that accepts TCP connections from collab clients, and a
// collab mode that connects to a running server and replicates against it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/atelier/pkg/alog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "atelier-demo",
	Short:   "Demo driver for the atelier document-graph persistence and collaboration core",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"atelier-demo version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(localCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(collabCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	alog.Init(alog.Config{Level: alog.Level(level), JSONOutput: jsonOutput})
}
