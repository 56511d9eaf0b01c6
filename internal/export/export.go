// Package export renders collection results as calendar feeds and files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/collection-day/internal/types"
)

// ICSProductID identifies the generator in calendar feeds.
const ICSProductID = "-//collection-day//Collection Day//EN"

// Options controls which events are exported and how they are labelled.
type Options struct {
	// Types filters events; zero means every type.
	Types types.CollectionType
	// RegionCode is part of each event UID so feeds for different councils never collide.
	RegionCode int
	// CalendarName is written as X-WR-CALNAME when set.
	CalendarName string
	// Reminder adds a VALARM this long before the start of each event.
	Reminder time.Duration
	// Now stamps DTSTAMP; defaults to time.Now.
	Now func() time.Time
}

func (o Options) filter(result types.CollectionResult) []types.CollectionEvent {
	t := o.Types
	if t == 0 {
		t = types.AllCollectionTypes
	}
	return result.Filter(t)
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// UID returns the stable identifier for an event in a region's feed.
func UID(e types.CollectionEvent, regionCode int) string {
	return fmt.Sprintf("%s-%s-%d@collection-day", e.Date.Format("20060102"), e.Type.Key(), regionCode)
}

// icsWriter writes CRLF-terminated content lines and keeps the first error.
type icsWriter struct {
	w   io.Writer
	err error
}

func (iw *icsWriter) line(format string, args ...any) {
	if iw.err != nil {
		return
	}
	_, iw.err = io.WriteString(iw.w, fold(fmt.Sprintf(format, args...))+"\r\n")
}

// maxLineOctets is the longest content line allowed before folding.
const maxLineOctets = 75

// fold breaks a content line into pieces of at most 75 octets joined by CRLF
// and a single space. Breaks never fall inside a UTF-8 sequence.
func fold(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}

	var sb strings.Builder
	width := maxLineOctets
	for len(line) > width {
		cut := width
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		sb.WriteString(line[:cut])
		sb.WriteString("\r\n ")
		line = line[cut:]
		// the leading space counts toward the limit
		width = maxLineOctets - 1
	}
	sb.WriteString(line)
	return sb.String()
}

// ICS writes an iCalendar feed with one all-day event per matching collection.
// A failed result produces an empty calendar.
func ICS(w io.Writer, result types.CollectionResult, opts Options) error {
	iw := &icsWriter{w: w}
	stamp := opts.now().UTC().Format("20060102T150405Z")

	iw.line("BEGIN:VCALENDAR")
	iw.line("VERSION:2.0")
	iw.line("PRODID:%s", ICSProductID)
	iw.line("METHOD:PUBLISH")
	iw.line("CALSCALE:GREGORIAN")
	if opts.CalendarName != "" {
		iw.line("X-WR-CALNAME:%s", escapeText(opts.CalendarName))
	}
	iw.line("X-PUBLISHED-TTL:PT12H")

	for _, e := range opts.filter(result) {
		summary := e.Type.String()
		description := e.Description
		if description == "" {
			description = summary
		}

		iw.line("BEGIN:VEVENT")
		iw.line("UID:%s", UID(e, opts.RegionCode))
		iw.line("DTSTAMP:%s", stamp)
		iw.line("DTSTART;VALUE=DATE:%s", e.Date.Format("20060102"))
		iw.line("DTEND;VALUE=DATE:%s", e.Date.AddDate(0, 0, 1).Format("20060102"))
		iw.line("SUMMARY:%s", escapeText(summary))
		iw.line("DESCRIPTION:%s", escapeText(description))
		if result.StreetAddress != "" {
			iw.line("LOCATION:%s", escapeText(result.StreetAddress))
		}
		iw.line("TRANSP:TRANSPARENT")
		if opts.Reminder > 0 {
			iw.line("BEGIN:VALARM")
			iw.line("ACTION:DISPLAY")
			iw.line("DESCRIPTION:%s", escapeText(summary))
			iw.line("TRIGGER:%s", trigger(opts.Reminder))
			iw.line("END:VALARM")
		}
		iw.line("END:VEVENT")
	}

	iw.line("END:VCALENDAR")
	return iw.err
}

// trigger formats d as a negative ISO 8601 duration, e.g. -P0DT12H0M.
func trigger(d time.Duration) string {
	total := int(d.Minutes())
	days := total / (24 * 60)
	hours := (total % (24 * 60)) / 60
	minutes := total % 60
	return fmt.Sprintf("-P%dDT%dH%dM", days, hours, minutes)
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// CSV writes a header row and one row per matching event.
func CSV(w io.Writer, result types.CollectionResult, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "type", "description", "street_address"}); err != nil {
		return err
	}
	for _, e := range opts.filter(result) {
		row := []string{
			e.Date.Format("2006-01-02"),
			e.Type.String(),
			e.Description,
			result.StreetAddress,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonExport is the downloadable JSON document.
type jsonExport struct {
	StreetAddress string      `json:"street_address,omitempty"`
	SourceURL     string      `json:"source_url,omitempty"`
	Region        int         `json:"region"`
	Types         []string    `json:"types"`
	Events        []jsonEvent `json:"events"`
}

type jsonEvent struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	UID         string `json:"uid"`
}

// JSON writes the matching events with plain dates.
func JSON(w io.Writer, result types.CollectionResult, opts Options) error {
	out := jsonExport{
		StreetAddress: result.StreetAddress,
		SourceURL:     result.SourceURL,
		Region:        opts.RegionCode,
		Events:        []jsonEvent{},
	}

	filter := opts.Types
	if filter == 0 {
		filter = types.AllCollectionTypes
	}
	for _, t := range []types.CollectionType{types.Rubbish, types.Recycling, types.FoodScraps} {
		if filter.Has(t) {
			out.Types = append(out.Types, t.Key())
		}
	}

	for _, e := range opts.filter(result) {
		out.Events = append(out.Events, jsonEvent{
			Date:        e.Date.Format("2006-01-02"),
			Type:        e.Type.String(),
			Description: e.Description,
			UID:         UID(e, opts.RegionCode),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Filename builds a download name such as "collection_10-popokatea-drive.ics".
func Filename(streetAddress, ext string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(streetAddress) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		slug = "schedule"
	}
	return "collection_" + slug + "." + strings.TrimPrefix(ext, ".")
}

// ParseReminder parses a reminder such as "12h" or "90" (minutes).
func ParseReminder(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("reminder must not be negative: %d", n)
		}
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid reminder %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("reminder must not be negative: %s", s)
	}
	return d, nil
}
