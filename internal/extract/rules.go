// Package extract pulls collection fragments out of a council's detail page.
package extract

// Rules are the selectors and constants describing one council's page layout.
// Selectors use CSS syntax; attribute-exact selectors such as div[class='x']
// are used where the page marks blocks with a single class value.
type Rules struct {
	// AnchorSelector and AnchorText locate the "next collection" block heading.
	AnchorSelector string `validate:"required"`
	AnchorText     string `validate:"required"`

	// HeadingSelector is the anchor's ancestor whose following siblings
	// (matched by FragmentContainerSelector) hold one FragmentSelector per type.
	HeadingSelector           string `validate:"required"`
	FragmentContainerSelector string `validate:"required"`
	FragmentSelector          string `validate:"required"`
	// FragmentSeparator splits "<label><sep><date text>".
	FragmentSeparator string `validate:"required"`

	// BodySelector is the anchor's ancestor followed by FooterSelector blocks
	// containing LabelSelector description labels.
	BodySelector   string `validate:"required"`
	FooterSelector string `validate:"required"`
	LabelSelector  string `validate:"required"`

	// DescriptionSentinel is the prefix every description starts with.
	DescriptionSentinel string `validate:"required"`
	// DescriptionHops is the number of raw sibling nodes between a label and its
	// description; DescriptionAttempts is how many consecutive offsets are tried.
	DescriptionHops     int `validate:"min=1"`
	DescriptionAttempts int `validate:"min=1"`

	// DateLayout is the Go reference layout for the date text plus a trailing year.
	DateLayout string `validate:"required"`

	// StreetSelector and SuburbSelector locate the display address.
	StreetSelector string `validate:"required"`
	SuburbSelector string
}
