// Package region holds the static table of supported councils.
package region

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/collection-day/internal/extract"
	"github.com/jonathan/collection-day/internal/lookup"
)

// IDPlaceholder is replaced with the resolved address identifier in DetailURL.
const IDPlaceholder = "{id}"

// Region is the immutable configuration for one council.
type Region struct {
	Code    int    `json:"code" validate:"min=1"`
	Name    string `json:"name" validate:"required"`
	BaseURL string `json:"base_url" validate:"required,url"`

	Lookup lookup.Config `json:"-"`
	// DetailURL is the collection page template; it must contain IDPlaceholder.
	DetailURL string        `json:"-" validate:"required"`
	Rules     extract.Rules `json:"-"`
}

// DetailPage returns the collection page URL for a resolved address identifier.
// The identifier is path-escaped so it stays within one path segment.
func (r Region) DetailPage(id string) string {
	return strings.ReplaceAll(r.DetailURL, IDPlaceholder, url.PathEscape(id))
}

func (r Region) String() string {
	return fmt.Sprintf("%d %s", r.Code, r.Name)
}

// Auckland constants.
const (
	AucklandCode    = 1
	AucklandName    = "Auckland City Council"
	AucklandBaseURL = "https://new.aucklandcouncil.govt.nz/"

	aucklandLookupPath = "nextapi/property"
	aucklandDetailPath = "en/rubbish-recycling/rubbish-recycling-collections/rubbish-recycling-collection-days/" + IDPlaceholder + ".html"
)

// Auckland returns the Auckland configuration rooted at baseURL, which must end with "/".
func Auckland(baseURL string) Region {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return Region{
		Code:    AucklandCode,
		Name:    AucklandName,
		BaseURL: baseURL,
		Lookup: lookup.Config{
			URL:            baseURL + aucklandLookupPath,
			Method:         http.MethodGet,
			QueryParam:     "query",
			ResultPath:     "items",
			IDField:        "id",
			AddressField:   "address",
			ResponseSchema: aucklandLookupSchema,
		},
		DetailURL: baseURL + aucklandDetailPath,
		Rules:     AucklandRules(),
	}
}

// AucklandRules describes the Auckland collection-day page.
func AucklandRules() extract.Rules {
	return extract.Rules{
		AnchorSelector:            "span",
		AnchorText:                "Household collection",
		HeadingSelector:           "div[class='card-heading']",
		FragmentContainerSelector: "div",
		FragmentSelector:          "p[class='mb-0 lead']",
		FragmentSeparator:         ":",
		BodySelector:              "div[class='card-body']",
		FooterSelector:            "div[class='card-footer']",
		LabelSelector:             "span[class='acpl-icon-with-attribute left']",
		DescriptionSentinel:       "Collection day",
		DescriptionHops:           3,
		DescriptionAttempts:       2,
		DateLayout:                "Monday, 2 January 2006",
		StreetSelector:            "h2[class=''] span[class='heading'] span",
		SuburbSelector:            "h2[class=''] span[class='subheading']",
	}
}
