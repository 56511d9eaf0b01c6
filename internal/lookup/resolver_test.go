package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/collection-day/internal/fixtures"
	"github.com/jonathan/collection-day/internal/schemas"
)

func getConfig(url string) Config {
	return Config{
		URL:          url,
		Method:       http.MethodGet,
		QueryParam:   "query",
		ResultPath:   "items",
		IDField:      "id",
		AddressField: "address",
	}
}

func newTestResolver(t *testing.T, cfg Config) *Resolver {
	t.Helper()
	r, err := NewResolver(nil, cfg)
	require.NoError(t, err)
	return r
}

func TestResolve_GETTakesFirstCandidate(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(fixtures.LookupResponse(
			[2]string{"12342478585", " 10 Popokatea Drive, Takanini "},
			[2]string{"99999", "10 Popokatea Drive, Drury"},
		)))
	}))
	defer server.Close()

	r := newTestResolver(t, getConfig(server.URL))
	match, err := r.Resolve(context.Background(), "10 Popokatea Drive & more")
	require.NoError(t, err)
	assert.Equal(t, "10 Popokatea Drive & more", gotQuery)
	assert.Equal(t, "12342478585", match.ID)
	assert.Equal(t, "10 Popokatea Drive, Takanini", match.Address)
}

func TestResolve_POSTBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "1 Queen Street", payload["searchText"])
		assert.Equal(t, float64(5), payload["limit"])

		_, _ = w.Write([]byte(`[{"PropertyId": 42, "FullAddress": "1 Queen Street, Auckland Central"}]`))
	}))
	defer server.Close()

	r := newTestResolver(t, Config{
		URL:          server.URL,
		Method:       http.MethodPost,
		BodyField:    "searchText",
		Body:         map[string]any{"limit": 5},
		Headers:      map[string]string{"X-Api-Key": "secret"},
		IDField:      "propertyid",
		AddressField: "fulladdress",
	})

	match, err := r.Resolve(context.Background(), "1 Queen Street")
	require.NoError(t, err)
	assert.Equal(t, "42", match.ID)
	assert.Equal(t, "1 Queen Street, Auckland Central", match.Address)
}

func TestResolve_CaseInsensitiveKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Items":[{"ID":"7","Address":"7 Main Road"}]}`))
	}))
	defer server.Close()

	match, err := newTestResolver(t, getConfig(server.URL)).Resolve(context.Background(), "7 main")
	require.NoError(t, err)
	assert.Equal(t, "7", match.ID)
	assert.Equal(t, "7 Main Road", match.Address)
}

func TestResolve_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "empty list", status: http.StatusOK, body: `{"items":[]}`},
		{name: "null list", status: http.StatusOK, body: `{"items":null}`},
		{name: "missing list", status: http.StatusOK, body: `{}`},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "not found status", status: http.StatusNotFound, body: `{"items":[]}`},
		{name: "blank id", status: http.StatusOK, body: `{"items":[{"id":"","address":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			match, err := newTestResolver(t, getConfig(server.URL)).Resolve(context.Background(), "nowhere")
			assert.Nil(t, match)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestResolve_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"items":`},
		{name: "items not array", body: `{"items":"abc"}`},
		{name: "candidate not object", body: `{"items":["abc"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestResolver(t, getConfig(server.URL)).Resolve(context.Background(), "x")
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrNotFound))

			var lookupErr *Error
			assert.ErrorAs(t, err, &lookupErr)
		})
	}
}

func TestResolve_SchemaRejectsShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"id":{"nested":true},"address":"x"}]}`))
	}))
	defer server.Close()

	cfg := getConfig(server.URL)
	cfg.ResponseSchema = schemas.MustSource("auckland_lookup.schema.json")

	_, err := newTestResolver(t, cfg).Resolve(context.Background(), "x")
	require.Error(t, err)

	var validationErr *schemas.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestResolve_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestResolver(t, getConfig(url)).Resolve(context.Background(), "x")
	require.Error(t, err)

	var lookupErr *Error
	assert.ErrorAs(t, err, &lookupErr)
	assert.Contains(t, err.Error(), "HTTP request failed")
}

func TestResolve_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fixtures.LookupResponse([2]string{"1", "a"})))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestResolver(t, getConfig(server.URL)).Resolve(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewResolver_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing url", cfg: Config{Method: "GET", QueryParam: "q", IDField: "id", AddressField: "a"}},
		{name: "bad method", cfg: Config{URL: "https://x.test", Method: "PUT", IDField: "id", AddressField: "a"}},
		{name: "get without query param", cfg: Config{URL: "https://x.test", Method: "GET", IDField: "id", AddressField: "a"}},
		{name: "post without body field", cfg: Config{URL: "https://x.test", Method: "POST", IDField: "id", AddressField: "a"}},
		{name: "missing id field", cfg: Config{URL: "https://x.test", Method: "GET", QueryParam: "q", AddressField: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(nil, tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewResolver_BadSchema(t *testing.T) {
	cfg := getConfig("https://x.test")
	cfg.ResponseSchema = `{"type": 3}`

	_, err := NewResolver(nil, cfg)
	var loadErr *schemas.SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestWalkPath(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"Results":[1,2]}}`), &raw))

	items, err := walkPath(raw, "data.results")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = walkPath(raw, "")
	assert.Error(t, err)

	_, err = walkPath(raw, "data.results.deeper")
	assert.Error(t, err)
}
