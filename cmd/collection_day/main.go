// Package main provides the entry point for the collection day CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/collection-day/internal/logx"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "collection_day",
	Short: "New Zealand rubbish and recycling collection days",
	Long: "collection_day looks up the next rubbish, recycling and food scraps collection dates " +
		"for a street address by querying the council's own website, from the command line or over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		// The server logs JSON for collectors; interactive commands log text.
		if cmd.Name() == "serve" {
			logx.Init("json")
			return
		}
		logx.Init("text")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
