// Package collection runs the address → page → events pipeline for one council.
package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/collection-day/internal/extract"
	"github.com/jonathan/collection-day/internal/fetch"
	"github.com/jonathan/collection-day/internal/logx"
	"github.com/jonathan/collection-day/internal/lookup"
	"github.com/jonathan/collection-day/internal/parsing"
	"github.com/jonathan/collection-day/internal/region"
	"github.com/jonathan/collection-day/internal/types"
)

// State is a step of the pipeline. The last four are terminal.
type State string

// Pipeline states.
const (
	StateResolving        State = "resolving"
	StateFetching         State = "fetching"
	StateExtracting       State = "extracting"
	StateResolutionFailed State = "resolution_failed"
	StateFetchFailed      State = "fetch_or_parse_failed"
	StateNoDetails        State = "no_details"
	StateSuccess          State = "success"
)

// AddressResolver finds the council's identifier for a free-text address.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (*types.AddressMatch, error)
}

// Pipeline resolves addresses for a single region. It keeps no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	region    region.Region
	resolver  AddressResolver
	fetcher   fetch.DocumentFetcher
	extractor *extract.Extractor
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock whose year starts the date search.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a pipeline for reg.
func NewPipeline(reg region.Region, resolver AddressResolver, fetcher fetch.DocumentFetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		region:    reg,
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: extract.New(reg.Rules),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Region returns the region the pipeline serves.
func (p *Pipeline) Region() region.Region {
	return p.region
}

// stateError ties a failure to the terminal state it ends in.
type stateError struct {
	state State
	err   error
}

func (e *stateError) Error() string {
	return fmt.Sprintf("%s: %v", e.state, e.err)
}

func (e *stateError) Unwrap() error {
	return e.err
}

func fail(state State, err error) error {
	return &stateError{state: state, err: err}
}

// Resolve runs the pipeline for address. It never returns an error or panics:
// every failure becomes a result carrying one of the user-facing messages, and
// Elapsed is always set.
func (p *Pipeline) Resolve(ctx context.Context, address string) (result types.CollectionResult) {
	start := time.Now()
	logger := logx.FromContext(ctx).With("region", p.region.Name, "address", address)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic during collection lookup", "panic", rec)
			result = types.FailedResult(types.ErrUnexpected)
		}
		result.Elapsed = time.Since(start)
	}()

	res, err := p.run(logx.WithLogger(ctx, logger), address)
	if err == nil {
		logger.Info("collection lookup finished",
			"outcome", StateSuccess, "events", len(res.Events), "elapsed", time.Since(start))
		return res
	}

	state := StateFetchFailed
	var se *stateError
	if errors.As(err, &se) {
		state = se.state
	}

	switch {
	case errors.Is(err, types.ErrAddressNotMatched):
		logger.Info("collection lookup finished", "outcome", state, "elapsed", time.Since(start))
		return types.FailedResult(types.ErrAddressNotMatched)
	case errors.Is(err, types.ErrNoCollectionDetails):
		logger.Info("collection lookup finished", "outcome", state, "elapsed", time.Since(start))
		return types.FailedResult(types.ErrNoCollectionDetails)
	default:
		logger.Error("collection lookup failed", "outcome", state, "error", err, "elapsed", time.Since(start))
		return types.FailedResult(types.ErrUnexpected)
	}
}

func (p *Pipeline) run(ctx context.Context, address string) (types.CollectionResult, error) {
	logger := logx.FromContext(ctx)

	logger.Debug("pipeline state", "state", StateResolving)
	match, err := p.resolver.Resolve(ctx, address)
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		return types.CollectionResult{}, fail(StateResolutionFailed, fmt.Errorf("%w: %v", types.ErrAddressNotMatched, err))
	case err != nil:
		return types.CollectionResult{}, fail(StateFetchFailed, err)
	case match == nil || match.ID == "":
		return types.CollectionResult{}, fail(StateResolutionFailed, types.ErrAddressNotMatched)
	}

	sourceURL := p.region.DetailPage(match.ID)
	logger.Debug("pipeline state", "state", StateFetching, "id", match.ID, "url", sourceURL)
	doc, err := p.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return types.CollectionResult{}, fail(StateFetchFailed, err)
	}
	if doc == nil {
		return types.CollectionResult{}, fail(StateFetchFailed, fmt.Errorf("no document for %s", sourceURL))
	}

	logger.Debug("pipeline state", "state", StateExtracting)
	events, street, err := p.extract(doc)
	if err != nil {
		return types.CollectionResult{}, err
	}

	return types.CollectionResult{
		StreetAddress: street,
		SourceURL:     sourceURL,
		Events:        events,
	}, nil
}

func (p *Pipeline) extract(doc *goquery.Document) ([]types.CollectionEvent, string, error) {
	street := p.extractor.StreetAddress(doc)
	if street == "" {
		return nil, "", fail(StateNoDetails, types.ErrNoCollectionDetails)
	}

	fragments := p.extractor.Fragments(doc)
	if len(fragments) == 0 {
		return nil, "", fail(StateNoDetails, types.ErrNoCollectionDetails)
	}

	year := p.now().Year()
	events := make([]types.CollectionEvent, 0, len(fragments))
	for _, f := range fragments {
		date, err := parsing.ResolveDate(f.DateText, p.region.Rules.DateLayout, year)
		if err != nil {
			return nil, "", fail(StateFetchFailed, err)
		}
		events = append(events, types.CollectionEvent{
			Type:        f.Type,
			Date:        date,
			Description: f.Description,
		})
	}
	return events, street, nil
}
