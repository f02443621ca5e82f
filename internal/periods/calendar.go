package periods

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LabelLayout is the canonical label format, e.g. "July 2020".
const LabelLayout = "January 2006"

// monthByName maps case-folded English month names to months.
var monthByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 12)
	for month := time.January; month <= time.December; month++ {
		m[fold(month.String())] = month
	}
	return m
}()

// Casers keep state between calls and are created per use.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ParseError reports a label whose leading token is not a month name or whose
// year suffix is unusable.
type ParseError struct {
	Label  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("periods: cannot parse %q: %s", e.Label, e.Reason)
}

func (e *ParseError) StatusCode() int { return http.StatusBadRequest }

// Period is a named financial month.
type Period struct {
	ID        int64      `json:"id"`
	Label     string     `json:"label"`
	Month     time.Month `json:"month"`
	Year      int        `json:"year"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	CreatedAt time.Time  `json:"created_at"`
}

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// NumeralOf parses the leading month name of a label into 1..12.
func NumeralOf(label string) (int, error) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, &ParseError{Label: label, Reason: "empty label"}
	}
	month, ok := monthByName[fold(fields[0])]
	if !ok {
		return 0, &ParseError{Label: label, Reason: fmt.Sprintf("unknown month %q", fields[0])}
	}
	return int(month), nil
}

// Parse turns a label into a Period with its calendar bounds. Only the month
// name and the year are accepted.
func Parse(label string) (Period, error) {
	numeral, err := NumeralOf(label)
	if err != nil {
		return Period{}, err
	}
	fields := strings.Fields(label)
	if len(fields) != 2 {
		return Period{}, &ParseError{Label: label, Reason: "expected \"<month> <year>\""}
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil || year < 1900 || year > 9999 {
		return Period{}, &ParseError{Label: label, Reason: fmt.Sprintf("invalid year %q", fields[1])}
	}
	return ForMonth(year, time.Month(numeral)), nil
}

// ForMonth builds the period for a calendar month in UTC.
func ForMonth(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Label: start.Format(LabelLayout),
		Month: month,
		Year:  year,
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// Label returns the canonical label of the month containing t.
func Label(t time.Time) string {
	return t.UTC().Format(LabelLayout)
}

// Normalize collapses whitespace and title-cases a user supplied label.
func Normalize(label string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(label), " "))
}
