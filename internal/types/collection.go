// Package types provides type definitions for collection lookups shared across the service.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CollectionType is a set of household collection categories.
// Values combine as bit flags so callers can filter by any subset.
type CollectionType uint8

const (
	// Rubbish is general household rubbish
	Rubbish CollectionType = 1 << iota
	// Recycling is mixed recycling
	Recycling
	// FoodScraps is the food scraps bin
	FoodScraps
)

// AllCollectionTypes is the union of every known category.
const AllCollectionTypes = Rubbish | Recycling | FoodScraps

var collectionTypeNames = []struct {
	t    CollectionType
	name string
}{
	{Rubbish, "Rubbish"},
	{Recycling, "Recycling"},
	{FoodScraps, "Food Scraps"},
}

// Has reports whether every flag in other is also set in t.
func (t CollectionType) Has(other CollectionType) bool {
	return other != 0 && t&other == other
}

// String returns the human readable name, joining combined flags with " + ".
func (t CollectionType) String() string {
	if t == 0 {
		return "None"
	}
	var names []string
	for _, n := range collectionTypeNames {
		if t.Has(n.t) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("CollectionType(%d)", uint8(t))
	}
	return strings.Join(names, " + ")
}

// Key returns a lowercase, space-free identifier for a single flag.
func (t CollectionType) Key() string {
	return strings.ReplaceAll(strings.ToLower(t.String()), " ", "_")
}

// MarshalJSON encodes a single type by name.
func (t CollectionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts either a name list or the numeric bitmask.
func (t *CollectionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint8
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return fmt.Errorf("collection type must be a string or number: %w", err)
		}
		*t = CollectionType(n) & AllCollectionTypes
		return nil
	}
	parsed, err := ParseCollectionTypes(strings.ReplaceAll(s, "+", ","))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseCollectionTypes parses a filter such as "3" or "rubbish, food scraps".
// An empty string selects every type.
func ParseCollectionTypes(s string) (CollectionType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AllCollectionTypes, nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 || n > int(AllCollectionTypes) {
			return 0, fmt.Errorf("collection type mask out of range: %d", n)
		}
		return CollectionType(n), nil
	}

	var result CollectionType
	for _, part := range strings.Split(s, ",") {
		key := strings.ToLower(strings.TrimSpace(part))
		if key == "" {
			continue
		}
		matched := false
		for _, n := range collectionTypeNames {
			if key == strings.ToLower(n.name) || key == n.t.Key() {
				result |= n.t
				matched = true
				break
			}
		}
		if !matched {
			return 0, fmt.Errorf("unknown collection type %q", part)
		}
	}
	if result == 0 {
		return AllCollectionTypes, nil
	}
	return result, nil
}

// ClassifyLabel maps a page label to a collection type by substring.
// Unrecognised labels return 0.
func ClassifyLabel(label string) CollectionType {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "rubbish"):
		return Rubbish
	case strings.Contains(l, "recycling"):
		return Recycling
	case strings.Contains(l, "food"), strings.Contains(l, "scrap"):
		return FoodScraps
	default:
		return 0
	}
}

// CollectionEvent is one upcoming collection for an address.
type CollectionEvent struct {
	Type        CollectionType `json:"type"`
	Date        time.Time      `json:"date"`
	Description string         `json:"description,omitempty"`
}

// CollectionResult is the outcome of a single lookup. Error and Events are
// mutually exclusive.
type CollectionResult struct {
	StreetAddress string            `json:"street_address,omitempty"`
	SourceURL     string            `json:"source_url,omitempty"`
	Events        []CollectionEvent `json:"events,omitempty"`
	Elapsed       time.Duration     `json:"-"`
	Error         string            `json:"error,omitempty"`
}

// Failed reports whether the lookup ended in an error.
func (r *CollectionResult) Failed() bool {
	return r.Error != ""
}

// Filter returns the events whose type is in the given set, preserving page order.
func (r *CollectionResult) Filter(types CollectionType) []CollectionEvent {
	var out []CollectionEvent
	for _, e := range r.Events {
		if types.Has(e.Type) {
			out = append(out, e)
		}
	}
	return out
}

// MarshalJSON adds elapsed_ms alongside the regular fields.
func (r CollectionResult) MarshalJSON() ([]byte, error) {
	type plain CollectionResult
	return json.Marshal(struct {
		plain
		ElapsedMs int64 `json:"elapsed_ms"`
	}{plain(r), r.Elapsed.Milliseconds()})
}

// FailedResult builds a result carrying only an error message.
func FailedResult(err error) CollectionResult {
	return CollectionResult{Error: err.Error()}
}

// AddressMatch is a canonical address returned by a region's lookup service.
type AddressMatch struct {
	ID      string `json:"id"`
	Address string `json:"address,omitempty"`
}

// CollectionRequest is the input to a collection lookup.
type CollectionRequest struct {
	Council string `json:"council" validate:"required,max=100"`
	Address string `json:"address" validate:"required,max=200"`
	Types   string `json:"types,omitempty" validate:"omitempty,max=64"`
}

// Validate validates the CollectionRequest using the validator.
func (r *CollectionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
