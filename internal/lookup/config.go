package lookup

// Config describes how a council's address search endpoint is called and read.
type Config struct {
	// URL is the search endpoint. For GET requests the address is added as QueryParam.
	URL string `validate:"required,url"`
	// Method is GET (query string) or POST (JSON body).
	Method     string `validate:"oneof=GET POST"`
	QueryParam string `validate:"required_if=Method GET"`
	// BodyField is the JSON key carrying the address in POST requests; Body holds
	// any fixed fields sent alongside it.
	BodyField string `validate:"required_if=Method POST"`
	Body      map[string]any
	Headers   map[string]string

	// ResultPath is a dot-notation path to the candidate array; empty means the root.
	ResultPath string
	// IDField and AddressField name the candidate keys, matched case-insensitively.
	IDField      string `validate:"required"`
	AddressField string `validate:"required"`
	// ResponseSchema is an optional JSON Schema the response body must satisfy.
	ResponseSchema string
}
