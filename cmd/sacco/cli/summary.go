package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/language"

	"github.com/mwanzo/sacco/internal/summary"
)

// Reporter builds summary reports.
type Reporter interface {
	SummarizePeriod(ctx context.Context, year int, month *int) (summary.Report, error)
}

// SummaryOptions selects the report printed by the summary command.
type SummaryOptions struct {
	Year  string
	Month int
	Lang  string
}

// PrintSummary builds the requested report and writes it as a table.
func PrintSummary(ctx context.Context, reporter Reporter, w io.Writer, opts SummaryOptions) error {
	year, err := strconv.Atoi(opts.Year)
	if err != nil {
		return fmt.Errorf("summary: invalid year %q", opts.Year)
	}
	var month *int
	if opts.Month != 0 {
		m := opts.Month
		month = &m
	}
	tag := language.English
	if opts.Lang != "" {
		parsed, err := language.Parse(opts.Lang)
		if err != nil {
			return fmt.Errorf("summary: invalid language %q: %w", opts.Lang, err)
		}
		tag = parsed
	}
	report, err := reporter.SummarizePeriod(ctx, year, month)
	if err != nil {
		return err
	}
	return summary.Format(w, report, tag)
}
