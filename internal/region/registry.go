package region

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/collection-day/internal/schemas"
	"github.com/jonathan/collection-day/internal/types"
)

var aucklandLookupSchema = schemas.MustSource("auckland_lookup.schema.json")

// Registry maps selectors to regions. It is built once and never mutated.
type Registry struct {
	regions []Region
}

// NewRegistry validates the regions, including their lookup and extraction rules,
// and rejects duplicate codes or names.
func NewRegistry(regions ...Region) (*Registry, error) {
	validate := validator.New()
	codes := make(map[int]bool, len(regions))
	names := make(map[string]bool, len(regions))

	for _, r := range regions {
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("region %q: %w", r.Name, err)
		}
		if !strings.Contains(r.DetailURL, IDPlaceholder) {
			return nil, fmt.Errorf("region %q: detail URL has no %s placeholder", r.Name, IDPlaceholder)
		}

		name := strings.ToLower(r.Name)
		if codes[r.Code] {
			return nil, fmt.Errorf("duplicate region code %d", r.Code)
		}
		if names[name] {
			return nil, fmt.Errorf("duplicate region name %q", r.Name)
		}
		codes[r.Code] = true
		names[name] = true
	}

	return &Registry{regions: append([]Region(nil), regions...)}, nil
}

// Default returns the registry of supported councils.
func Default() *Registry {
	reg, err := NewRegistry(Auckland(AucklandBaseURL))
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup finds a region by numeric code or by name, ignoring case.
func (r *Registry) Lookup(selector string) (Region, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Region{}, types.ErrUnknownRegion
	}

	if code, err := strconv.Atoi(selector); err == nil {
		for _, reg := range r.regions {
			if reg.Code == code {
				return reg, nil
			}
		}
		return Region{}, types.ErrUnknownRegion
	}

	for _, reg := range r.regions {
		if strings.EqualFold(reg.Name, selector) {
			return reg, nil
		}
	}
	return Region{}, types.ErrUnknownRegion
}

// All returns the registered regions in registration order.
func (r *Registry) All() []Region {
	return append([]Region(nil), r.regions...)
}
