package collection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/collection-day/internal/fetch"
	"github.com/jonathan/collection-day/internal/logx"
	"github.com/jonathan/collection-day/internal/lookup"
	"github.com/jonathan/collection-day/internal/region"
	"github.com/jonathan/collection-day/internal/types"
)

// Service selects a region's pipeline and runs it.
type Service struct {
	registry  *region.Registry
	pipelines map[int]*Pipeline
}

// NewService builds one pipeline per registered region. Lookups use client and
// pages are fetched with fetcher.
func NewService(registry *region.Registry, client lookup.Doer, fetcher fetch.DocumentFetcher, opts ...Option) (*Service, error) {
	s := &Service{
		registry:  registry,
		pipelines: make(map[int]*Pipeline),
	}
	for _, reg := range registry.All() {
		resolver, err := lookup.NewResolver(client, reg.Lookup)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", reg, err)
		}
		s.pipelines[reg.Code] = NewPipeline(reg, resolver, fetcher, opts...)
	}
	return s, nil
}

// Regions returns the registered regions.
func (s *Service) Regions() []region.Region {
	return s.registry.All()
}

// Region returns the region named by selector, a region code or name.
func (s *Service) Region(selector string) (region.Region, error) {
	return s.registry.Lookup(selector)
}

// Pipeline returns the pipeline for a region selector.
func (s *Service) Pipeline(selector string) (*Pipeline, error) {
	reg, err := s.registry.Lookup(selector)
	if err != nil {
		return nil, err
	}
	return s.pipelines[reg.Code], nil
}

// ResolveCollection resolves address within the region named by selector,
// which is a region code or name.
func (s *Service) ResolveCollection(ctx context.Context, selector, address string) types.CollectionResult {
	start := time.Now()

	p, err := s.Pipeline(selector)
	if err != nil {
		logx.FromContext(ctx).Info("unknown region", "selector", selector)
		result := types.FailedResult(types.ErrUnknownRegion)
		result.Elapsed = time.Since(start)
		return result
	}

	return p.Resolve(ctx, strings.TrimSpace(address))
}
