package summary

import "time"

// Window is a half-open [From, To) reporting interval.
type Window struct {
	From time.Time
	To   time.Time
}

// YearWindow spans year Y from its anchored first instant to that of Y+1.
func YearWindow(year int, anchor time.Duration) (Window, error) {
	if year < 1900 || year > 9999 {
		return Window{}, &WindowError{Year: year}
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Window{From: start.Add(anchor), To: start.AddDate(1, 0, 0).Add(anchor)}, nil
}

// MonthWindow spans one month; December rolls over into the next year.
func MonthWindow(year, month int, anchor time.Duration) (Window, error) {
	if year < 1900 || year > 9999 || month < 1 || month > 12 {
		return Window{}, &WindowError{Year: year, Month: month}
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Window{From: start.Add(anchor), To: start.AddDate(0, 1, 0).Add(anchor)}, nil
}
