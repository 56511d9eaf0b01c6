package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxYearSearch bounds how many consecutive years ResolveDate will try.
// A weekday/day/month combination recurs within eleven years, and within
// twenty-eight for 29 February, so well-formed input never reaches the bound.
const MaxYearSearch = 29

var (
	leadingZero = regexp.MustCompile(`\b0+(\d)`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// ResolveDate parses text such as "Tuesday, 7 March" that carries no year.
// It appends startYear and tries the layout, moving forward one year at a time
// until the parsed calendar date agrees with every field in the text, including
// the weekday. The result is midnight in the local time zone.
func ResolveDate(text, layout string, startYear int) (time.Time, error) {
	text = normalizeDateText(text)
	if text == "" {
		return time.Time{}, &DateError{Text: text, Layout: layout, StartYear: startYear, Cause: ErrUnresolvableDate}
	}

	for year := startYear; year < startYear+MaxYearSearch; year++ {
		candidate := text + " " + strconv.Itoa(year)
		t, err := time.ParseInLocation(layout, candidate, time.Local)
		if err != nil {
			continue
		}
		// time.Parse validates the weekday name but not that it matches the date.
		if !strings.EqualFold(normalizeDateText(t.Format(layout)), candidate) {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local), nil
	}

	return time.Time{}, &DateError{Text: text, Layout: layout, StartYear: startYear, Cause: ErrUnresolvableDate}
}

// normalizeDateText collapses whitespace and strips leading zeros from numbers.
func normalizeDateText(s string) string {
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	return leadingZero.ReplaceAllString(s, "$1")
}
