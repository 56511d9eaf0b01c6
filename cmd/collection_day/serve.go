package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/collection-day/internal/region"
	"github.com/jonathan/collection-day/internal/server"
)

var (
	servePort    int
	serveCouncil string
	serveStreet  string
	serveTypes   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing collection lookups as JSON, iCalendar and CSV.
--council and --street set the lookup used when /collection is called without a query.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().StringVar(&serveCouncil, "council", "", "Default council code or name")
	serveCmd.Flags().StringVar(&serveStreet, "street", "", "Default street address")
	serveCmd.Flags().StringVar(&serveTypes, "types", "", "Default collection types, e.g. 3 or \"rubbish,recycling\"")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if serveCouncil != "" {
		cfg.Council = serveCouncil
	}
	if serveStreet != "" {
		cfg.StreetAddress = serveStreet
	}
	if serveTypes != "" {
		cfg.CollectionTypes = serveTypes
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newService(cfg, region.Default())
	if err != nil {
		return err
	}

	srv := server.New(cfg, svc, nil)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
