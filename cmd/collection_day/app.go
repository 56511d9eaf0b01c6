package main

import (
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/collection-day/internal/collection"
	"github.com/jonathan/collection-day/internal/config"
	"github.com/jonathan/collection-day/internal/extract"
	"github.com/jonathan/collection-day/internal/fetch"
	"github.com/jonathan/collection-day/internal/region"
)

// loadConfig builds the effective configuration from defaults, the --config
// file and the environment. Callers apply their own flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath, os.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newService wires fetching and lookups for every region in registry.
func newService(cfg config.Config, registry *region.Registry) (*collection.Service, error) {
	opts := fetch.DefaultOptions()
	if t := cfg.Timeout(); t > 0 {
		opts.Timeout = t
	}
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}

	httpFetcher := fetch.NewHTTPFetcher(opts)
	var fetcher fetch.DocumentFetcher = httpFetcher
	if cfg.UseBrowser {
		fetcher = &fetch.FallbackFetcher{
			Primary:  httpFetcher,
			Fallback: fetch.NewBrowserFetcher(opts.Timeout),
			Ready:    pageReady(registry.All()),
		}
	}

	svc, err := collection.NewService(registry, httpFetcher.Client(), fetcher)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection service: %w", err)
	}
	return svc, nil
}

// pageReady reports whether a document already carries collection lines for
// one of the regions, so no browser render is needed.
func pageReady(regions []region.Region) func(*goquery.Document) bool {
	extractors := make([]*extract.Extractor, 0, len(regions))
	for _, reg := range regions {
		extractors = append(extractors, extract.New(reg.Rules))
	}
	return func(doc *goquery.Document) bool {
		for _, e := range extractors {
			if len(e.Fragments(doc)) > 0 {
				return true
			}
		}
		return false
	}
}
