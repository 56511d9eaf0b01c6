package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/collection-day/internal/config"
	"github.com/jonathan/collection-day/internal/fetch"
	"github.com/jonathan/collection-day/internal/fixtures"
	"github.com/jonathan/collection-day/internal/region"
	"github.com/jonathan/collection-day/internal/types"
)

// fakeResolver answers with the address echoed back and tracks concurrency.
type fakeResolver struct {
	delay    time.Duration
	fail     map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	councils []string
}

func (f *fakeResolver) ResolveCollection(ctx context.Context, council, address string) types.CollectionResult {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.councils = append(f.councils, council)
	f.mu.Unlock()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return types.FailedResult(types.ErrUnexpected)
	}

	if f.fail[address] {
		return types.FailedResult(types.ErrAddressNotMatched)
	}
	return types.CollectionResult{
		StreetAddress: address,
		SourceURL:     "https://example.test/" + address,
		Events: []types.CollectionEvent{
			{Type: types.Rubbish, Date: time.Date(2023, time.March, 7, 0, 0, 0, 0, time.Local)},
		},
	}
}

func TestResolveAll_PreservesOrder(t *testing.T) {
	f := &fakeResolver{delay: 5 * time.Millisecond}
	addresses := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	results := resolveAll(context.Background(), f, "1", addresses, time.Second)

	require.Len(t, results, len(addresses))
	for i, r := range results {
		assert.Equal(t, addresses[i], r.StreetAddress)
	}
	assert.LessOrEqual(t, int(f.peak.Load()), maxConcurrentLookups)
	for _, c := range f.councils {
		assert.Equal(t, "1", c)
	}
}

func TestResolveAll_Timeout(t *testing.T) {
	f := &fakeResolver{delay: time.Second}

	results := resolveAll(context.Background(), f, "1", []string{"slow"}, 10*time.Millisecond)

	require.Len(t, results, 1)
	assert.Equal(t, types.ErrUnexpected.Error(), results[0].Error)
}

func TestWriteResults_Printer(t *testing.T) {
	results := []types.CollectionResult{
		{
			StreetAddress: "10 Popokatea Drive, Takanini",
			SourceURL:     "https://example.test/1",
			Events: []types.CollectionEvent{
				{Type: types.Rubbish, Date: time.Date(2023, time.March, 7, 0, 0, 0, 0, time.Local)},
			},
		},
	}

	var buf bytes.Buffer
	err := writeResults(&buf, []string{"10 Popokatea"}, results, types.AllCollectionTypes, false)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "NEXT COLLECTIONS")
	assert.Contains(t, buf.String(), "10 Popokatea Drive, Takanini")
}

func TestWriteResults_JSON(t *testing.T) {
	f := &fakeResolver{fail: map[string]bool{"nowhere": true}}
	addresses := []string{"somewhere", "nowhere"}
	results := resolveAll(context.Background(), f, "1", addresses, time.Second)

	var buf bytes.Buffer
	err := writeResults(&buf, addresses, results, types.AllCollectionTypes, true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 lookups failed")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "somewhere", decoded[0]["street_address"])
	assert.Equal(t, types.ErrAddressNotMatched.Error(), decoded[1]["error"])
}

func TestWriteResults_JSONRejectsInvalidResult(t *testing.T) {
	// Success without a source URL breaks the result contract.
	results := []types.CollectionResult{{
		StreetAddress: "x",
		Events:        []types.CollectionEvent{{Type: types.Recycling, Date: time.Now()}},
	}}

	var buf bytes.Buffer
	err := writeResults(&buf, []string{"x"}, results, types.AllCollectionTypes, true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `result for "x"`)
	assert.Empty(t, buf.String())
}

func TestNewService_EndToEnd(t *testing.T) {
	page := fixtures.ThreeTypes().HTML()
	council := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/nextapi/property":
			_, _ = fmt.Fprint(w, fixtures.LookupResponse([2]string{"12345", "10 Popokatea Drive"}))
		case strings.HasSuffix(r.URL.Path, "/12345.html"):
			assert.Equal(t, "collection-day-test", r.UserAgent())
			_, _ = fmt.Fprint(w, page)
		default:
			http.NotFound(w, r)
		}
	}))
	defer council.Close()

	registry, err := region.NewRegistry(region.Auckland(council.URL))
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.UserAgent = "collection-day-test"
	svc, err := newService(cfg, registry)
	require.NoError(t, err)

	results := resolveAll(context.Background(), svc, "Auckland City Council", []string{"10 Popokatea Drive", "10 Popokatea Drive"}, time.Second)
	for _, r := range results {
		assert.Empty(t, r.Error)
		assert.Equal(t, "10 Popokatea Drive, Takanini", r.StreetAddress)
		assert.Len(t, r.Events, 3)
	}
}

func TestPageReady(t *testing.T) {
	ready := pageReady([]region.Region{region.Auckland(region.AucklandBaseURL)})

	full, err := fetch.Parse("https://example.test", fixtures.ThreeTypes().HTML())
	require.NoError(t, err)
	assert.True(t, ready(full))

	shell, err := fetch.Parse("https://example.test", fixtures.Page{Street: "1 Queen Street", OmitCollection: true}.HTML())
	require.NoError(t, err)
	assert.False(t, ready(shell))
}
