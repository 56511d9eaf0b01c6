// Package fixtures builds council detail pages and lookup responses for tests.
package fixtures

import (
	"fmt"
	"html"
	"strings"
)

// Line is one collection line on a detail page.
type Line struct {
	Label       string
	Date        string
	Description string
	// Wrapped inserts an extra node between the label and its description.
	Wrapped bool
	// NoFooter leaves the line without a description entry.
	NoFooter bool
}

// Page describes an Auckland-style collection detail page.
type Page struct {
	Street string
	Suburb string
	Lines  []Line
	// OmitCollection drops the "Household collection" card entirely.
	OmitCollection bool
}

// HTML renders the page.
func (p Page) HTML() string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><head><title>Collection days</title></head><body>\n")
	sb.WriteString("<main>\n")

	if p.Street != "" {
		sb.WriteString(`<h2 class=""><span class="heading"><span>`)
		sb.WriteString(html.EscapeString(p.Street))
		sb.WriteString("</span></span>")
		if p.Suburb != "" {
			fmt.Fprintf(&sb, `<span class="subheading">%s</span>`, html.EscapeString(p.Suburb))
		}
		sb.WriteString("</h2>\n")
	}

	if !p.OmitCollection {
		sb.WriteString(`<div class="card">` + "\n")
		sb.WriteString(`<div class="card-body">` + "\n")
		sb.WriteString(`<div class="card-heading"><h3 class="card-title"><span>Household collection</span></h3></div>` + "\n")
		sb.WriteString(`<div class="links">` + "\n")
		for _, l := range p.Lines {
			fmt.Fprintf(&sb, `<p class="mb-0 lead"><span>%s: </span><b>%s</b></p>`+"\n",
				html.EscapeString(l.Label), html.EscapeString(l.Date))
		}
		sb.WriteString("</div>\n</div>\n")

		sb.WriteString(`<div class="card-footer">` + "\n")
		for _, l := range p.Lines {
			if l.NoFooter {
				continue
			}
			fmt.Fprintf(&sb, `<div><span class="acpl-icon-with-attribute left"><i class="icon"></i>%s</span><br>`+"\n",
				html.EscapeString(l.Label))
			if l.Wrapped {
				sb.WriteString(`<span class="badge">Weekly</span>`)
			}
			fmt.Fprintf(&sb, "<span>%s</span></div>\n", html.EscapeString(l.Description))
		}
		sb.WriteString("</div>\n</div>\n")
	}

	sb.WriteString("</main>\n</body></html>\n")
	return sb.String()
}

// ThreeTypes is a page with one line per collection type.
func ThreeTypes() Page {
	return Page{
		Street: "10 Popokatea Drive",
		Suburb: "Takanini",
		Lines: []Line{
			{Label: "Rubbish", Date: "Tuesday, 7 March", Description: "Collection day: Tuesday, weekly"},
			{Label: "Recycling", Date: "Wednesday, 8 March", Description: "Collection day: Wednesday, fortnightly"},
			{Label: "Food scraps", Date: "Tuesday, 7 March", Description: "Collection day: Tuesday, weekly"},
		},
	}
}

// LookupResponse renders an Auckland property search response.
func LookupResponse(items ...[2]string) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf(`{"id":%q,"address":%q}`, it[0], it[1]))
	}
	return `{"items":[` + strings.Join(parts, ",") + `]}`
}
