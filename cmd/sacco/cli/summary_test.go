package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mwanzo/sacco/internal/summary"
)

type stubReporter struct {
	year  int
	month *int
}

func (s *stubReporter) SummarizePeriod(_ context.Context, year int, month *int) (summary.Report, error) {
	s.year, s.month = year, month
	return summary.Report{
		Year:  year,
		Month: month,
		Totals: map[summary.Metric]summary.Aggregate{
			summary.MetricDeposits: {Count: 3, Total: decimal.RequireFromString("1234567.5")},
		},
	}, nil
}

func TestPrintSummary(t *testing.T) {
	reporter := &stubReporter{}
	var buf bytes.Buffer

	err := PrintSummary(context.Background(), reporter, &buf, SummaryOptions{Year: "2021", Month: 7})
	require.NoError(t, err)
	require.Equal(t, 2021, reporter.year)
	require.NotNil(t, reporter.month)
	require.Equal(t, 7, *reporter.month)
	require.Contains(t, buf.String(), "Summary 2021-07")
	require.Contains(t, buf.String(), "1,234,567.50")
}

func TestPrintSummaryRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, PrintSummary(context.Background(), &stubReporter{}, &buf, SummaryOptions{Year: "twenty"}))
	require.Error(t, PrintSummary(context.Background(), &stubReporter{}, &buf, SummaryOptions{Year: "2021", Lang: "!!"}))
}
