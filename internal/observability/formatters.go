// Package observability provides boxed, human-readable output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/collection-day/internal/region"
	"github.com/jonathan/collection-day/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// descriptionWidth is where event descriptions are cut
	descriptionWidth = 50
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// PrintResult outputs the events of a lookup that match filter, or its error.
func (p *Printer) PrintResult(query string, result types.CollectionResult, filter types.CollectionType) {
	if result.Failed() {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Query:    %s\n", query))
		sb.WriteString(fmt.Sprintf("⚠ %s", result.Error))
		p.printBox("NO COLLECTION FOUND", sb.String())
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Address:  %s\n", result.StreetAddress))
	sb.WriteString(fmt.Sprintf("Took:     %s\n", result.Elapsed.Round(1e6)))
	sb.WriteString("\n")

	events := result.Filter(filter)
	if len(events) == 0 {
		sb.WriteString(fmt.Sprintf("No %s collections listed", filter))
	}
	for i, e := range events {
		sb.WriteString(fmt.Sprintf("• %-12s %s\n", e.Type, e.Date.Format("Mon 2 Jan 2006")))
		if e.Description != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", truncate(e.Description, descriptionWidth)))
		}
		if i < len(events)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("NEXT COLLECTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRegions outputs the supported councils.
func (p *Printer) PrintRegions(regions []region.Region) {
	if len(regions) == 0 {
		p.printBox("SUPPORTED COUNCILS", "none")
		return
	}

	var sb strings.Builder
	for _, r := range regions {
		sb.WriteString(fmt.Sprintf("%3d  %s\n", r.Code, r.Name))
	}
	p.printBox("SUPPORTED COUNCILS", strings.TrimSuffix(sb.String(), "\n"))
}
