package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/collection-day/internal/types"
)

// Fragment is one collection entry as printed on the page, before date resolution.
type Fragment struct {
	Type        types.CollectionType
	Label       string
	DateText    string
	Description string
}

// Extractor applies a council's Rules to fetched documents. It holds no
// per-document state and is safe for concurrent use.
type Extractor struct {
	rules Rules
}

// New creates an Extractor for the given rules.
func New(rules Rules) *Extractor {
	return &Extractor{rules: rules}
}

// Rules returns the rules the extractor was built with.
func (e *Extractor) Rules() Rules {
	return e.rules
}

// StreetAddress returns the display address printed near the top of the page,
// formatted "<street>, <suburb>". It returns "" when the street is missing.
func (e *Extractor) StreetAddress(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	street := collapseSpace(doc.Find(e.rules.StreetSelector).First().Text())
	if street == "" {
		return ""
	}
	if e.rules.SuburbSelector == "" {
		return street
	}
	suburb := collapseSpace(doc.Find(e.rules.SuburbSelector).First().Text())
	if suburb == "" {
		return street
	}
	return street + ", " + suburb
}

// Fragments returns one Fragment per recognised collection line, in page order.
// It returns nil when either the collection block or the description block is
// absent. Lines with an unrecognised label or no date text are skipped, and a
// missing description leaves Description empty.
func (e *Extractor) Fragments(doc *goquery.Document) []Fragment {
	if doc == nil {
		return nil
	}

	anchor := e.anchor(doc)
	if anchor.Length() == 0 {
		return nil
	}

	lines := anchor.Closest(e.rules.HeadingSelector).
		NextAllFiltered(e.rules.FragmentContainerSelector).
		Find(e.rules.FragmentSelector)
	labels := anchor.Closest(e.rules.BodySelector).
		NextAllFiltered(e.rules.FooterSelector).
		Find(e.rules.LabelSelector)

	if lines.Length() == 0 || labels.Length() == 0 {
		return nil
	}

	var fragments []Fragment
	lines.Each(func(_ int, line *goquery.Selection) {
		label, dateText, ok := e.splitLine(line.Text())
		if !ok {
			return
		}

		collectionType := types.ClassifyLabel(label)
		if collectionType == 0 {
			return
		}

		fragments = append(fragments, Fragment{
			Type:        collectionType,
			Label:       label,
			DateText:    dateText,
			Description: e.description(labels, label),
		})
	})

	return fragments
}

// anchor finds the elements whose trimmed text equals the anchor text.
func (e *Extractor) anchor(doc *goquery.Document) *goquery.Selection {
	return doc.Find(e.rules.AnchorSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return collapseSpace(s.Text()) == e.rules.AnchorText
	})
}

// splitLine splits "Rubbish: Tuesday, 7 March" into its lowercased label and date text.
func (e *Extractor) splitLine(text string) (label, dateText string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(text), e.rules.FragmentSeparator, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	label = strings.ToLower(collapseSpace(parts[0]))
	dateText = collapseSpace(parts[1])
	if label == "" || dateText == "" {
		return "", "", false
	}
	return label, dateText, true
}

// description finds the first label whose whole text equals label and walks
// its raw siblings for the description text.
func (e *Extractor) description(labels *goquery.Selection, label string) string {
	match := labels.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.ToLower(collapseSpace(s.Text())) == label
	}).First()
	if match.Length() == 0 {
		return ""
	}
	return siblingDescription(
		match.Get(0),
		e.rules.DescriptionSentinel,
		e.rules.DescriptionHops,
		e.rules.DescriptionAttempts,
	)
}
