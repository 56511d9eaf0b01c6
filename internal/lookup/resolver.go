// Package lookup resolves free-text addresses against a council's address search service.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/collection-day/internal/schemas"
	"github.com/jonathan/collection-day/internal/types"
)

// maxResponseBytes bounds how much of a lookup response is read.
const maxResponseBytes = 10 * 1024 * 1024

// ErrNotFound is returned when the service answers but offers no usable candidate.
var ErrNotFound = errors.New("address not found")

// Error represents a failure talking to or decoding the lookup service.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("lookup error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("lookup error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Doer is the part of *http.Client the resolver needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver turns an address into the first candidate returned by the service.
// It holds only read-only state and is safe for concurrent use.
type Resolver struct {
	client Doer
	cfg    Config
	schema *schemas.Schema
}

// NewResolver validates cfg and compiles its response schema.
func NewResolver(client Doer, cfg Config) (*Resolver, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid lookup config: %w", err)
	}

	r := &Resolver{client: client, cfg: cfg}
	if cfg.ResponseSchema != "" {
		s, err := schemas.Compile("lookup response", cfg.ResponseSchema)
		if err != nil {
			return nil, err
		}
		r.schema = s
	}
	return r, nil
}

// Resolve sends address to the service and returns the first candidate.
// A non-success status, an empty candidate list, or a first candidate without
// an identifier all yield ErrNotFound. Transport and decoding failures are *Error.
func (r *Resolver) Resolve(ctx context.Context, address string) (*types.AddressMatch, error) {
	req, err := r.newRequest(ctx, address)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &Error{URL: r.cfg.URL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP status %d", ErrNotFound, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{URL: r.cfg.URL, Message: "failed to read response body", Cause: err}
	}

	if r.schema != nil {
		if err := r.schema.Validate(body); err != nil {
			return nil, &Error{URL: r.cfg.URL, Message: "unexpected response shape", Cause: err}
		}
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &Error{URL: r.cfg.URL, Message: "failed to decode response", Cause: err}
	}

	items, err := walkPath(raw, r.cfg.ResultPath)
	if err != nil {
		return nil, &Error{URL: r.cfg.URL, Message: fmt.Sprintf("walk path %q", r.cfg.ResultPath), Cause: err}
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	// Only the first candidate is considered; ambiguous input is not disambiguated.
	first, ok := items[0].(map[string]any)
	if !ok {
		return nil, &Error{URL: r.cfg.URL, Message: fmt.Sprintf("candidate is %T, not an object", items[0])}
	}

	match := &types.AddressMatch{
		ID:      strings.TrimSpace(asString(field(first, r.cfg.IDField))),
		Address: strings.TrimSpace(asString(field(first, r.cfg.AddressField))),
	}
	if match.ID == "" {
		return nil, fmt.Errorf("%w: candidate has no %s", ErrNotFound, r.cfg.IDField)
	}
	return match, nil
}

func (r *Resolver) newRequest(ctx context.Context, address string) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)

	switch r.cfg.Method {
	case http.MethodPost:
		payload := make(map[string]any, len(r.cfg.Body)+1)
		for k, v := range r.cfg.Body {
			payload[k] = v
		}
		payload[r.cfg.BodyField] = address

		var data []byte
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, &Error{URL: r.cfg.URL, Message: "failed to encode request", Cause: err}
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(data))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	default:
		u, perr := url.Parse(r.cfg.URL)
		if perr != nil {
			return nil, &Error{URL: r.cfg.URL, Message: "invalid URL", Cause: perr}
		}
		q := u.Query()
		q.Set(r.cfg.QueryParam, address)
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}
	if err != nil {
		return nil, &Error{URL: r.cfg.URL, Message: "failed to create request", Cause: err}
	}

	for k, v := range r.cfg.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

// walkPath follows a dot-notation path to an array. An empty path means the
// root must itself be an array. Keys match case-insensitively.
func walkPath(v any, path string) ([]any, error) {
	current := v
	if path != "" {
		for _, part := range strings.Split(path, ".") {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at %q, got %T", part, current)
			}
			next := field(obj, part)
			if next == nil {
				// A missing or null list is treated as no candidates.
				return nil, nil
			}
			current = next
		}
	}

	arr, ok := current.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", current)
	}
	return arr, nil
}

// field returns obj[key], falling back to a case-insensitive key match.
func field(obj map[string]any, key string) any {
	if v, ok := obj[key]; ok {
		return v
	}
	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
