package types

import "errors"

// User-facing lookup outcomes. Their messages are returned verbatim in CollectionResult.Error.
//
//nolint:staticcheck // capitalised and punctuated for display
var (
	// ErrAddressNotMatched is returned when the lookup service has no candidate for the address
	ErrAddressNotMatched = errors.New("Could not match a single street address. Please try another address or be more specific.")
	// ErrNoCollectionDetails is returned when the detail page has no usable collection data
	ErrNoCollectionDetails = errors.New("No collection details found for this street")
	// ErrUnexpected covers every other failure during resolution, fetch or extraction
	ErrUnexpected = errors.New("An unexpected error occurred while retrieving")
	// ErrUnknownRegion is returned when the region selector matches no registered region
	ErrUnknownRegion = errors.New("Incorrect Council name or enum used.")
	// ErrMissingDefaults is returned when a default lookup is requested without configured inputs
	ErrMissingDefaults = errors.New("Both 'Council' and 'StreetAddress' must be set to use this endpoint.")
)
