package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/collection-day/internal/observability"
	"github.com/jonathan/collection-day/internal/region"
	"github.com/jonathan/collection-day/internal/schemas"
	"github.com/jonathan/collection-day/internal/types"
)

// maxConcurrentLookups bounds the requests made to a council site at once.
const maxConcurrentLookups = 4

var (
	lookupCouncil string
	lookupTypes   string
	lookupJSON    bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [address...]",
	Short: "Look up the next collection days for one or more addresses",
	Long: `Resolve each address against the council's address search and print its next
collection days. Without arguments the configured street address is used.
Exits non-zero when any lookup fails.`,
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().StringVarP(&lookupCouncil, "council", "c", "", "Council code or name (default from config)")
	lookupCmd.Flags().StringVarP(&lookupTypes, "types", "t", "", "Collection types to show, e.g. 3 or \"rubbish,recycling\"")
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(lookupCmd)
}

// CollectionResolver is the part of collection.Service the CLI uses.
type CollectionResolver interface {
	ResolveCollection(ctx context.Context, selector, address string) types.CollectionResult
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if lookupCouncil != "" {
		cfg.Council = lookupCouncil
	}
	if lookupTypes != "" {
		cfg.CollectionTypes = lookupTypes
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	addresses := args
	if len(addresses) == 0 {
		if !cfg.HasDefaultLookup() {
			return types.ErrMissingDefaults
		}
		addresses = []string{cfg.StreetAddress}
	}
	if cfg.Council == "" {
		return fmt.Errorf("--council is required")
	}

	svc, err := newService(cfg, region.Default())
	if err != nil {
		return err
	}

	results := resolveAll(cmd.Context(), svc, cfg.Council, addresses, cfg.Timeout())
	return writeResults(cmd.OutOrStdout(), addresses, results, cfg.Types(), lookupJSON)
}

// resolveAll resolves addresses concurrently and returns results in argument order.
func resolveAll(ctx context.Context, svc CollectionResolver, council string, addresses []string, timeout time.Duration) []types.CollectionResult {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]types.CollectionResult, len(addresses))

	var g errgroup.Group
	g.SetLimit(maxConcurrentLookups)
	for i, address := range addresses {
		g.Go(func() error {
			lookupCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				lookupCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			results[i] = svc.ResolveCollection(lookupCtx, council, address)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// writeResults prints results as boxes or as a JSON array checked against the
// result schema. It returns an error naming how many lookups failed.
func writeResults(w io.Writer, addresses []string, results []types.CollectionResult, filter types.CollectionType, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		schema, err := schemas.Load(schemas.CollectionResultFile)
		if err != nil {
			return err
		}
		for i, r := range results {
			if err := schema.ValidateValue(r); err != nil {
				return fmt.Errorf("result for %q: %w", addresses[i], err)
			}
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	} else {
		printer := observability.NewPrinter(w)
		for i, r := range results {
			printer.PrintResult(addresses[i], r, filter)
		}
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(results))
	}
	return nil
}
