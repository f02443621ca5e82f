package summary

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var reportLabels = []struct {
	metric Metric
	label  string
}{
	{MetricDeposits, "Monthly deposits"},
	{MetricInstallments, "Installments"},
	{MetricLoansSupplied, "Loans supplied"},
	{MetricRegistrationFees, "Registration fees"},
	{MetricDepositOverdueCharges, "Deposit overdue charges"},
	{MetricDepositOverduePayments, "Deposit overdue payments"},
	{MetricLoanOverdueCharges, "Loan overdue charges"},
	{MetricLoanOverduePayments, "Loan overdue payments"},
	{MetricPaidLoanInterest, "Fully paid loan interest"},
	{MetricPaidLoans, "Paid loans"},
	{MetricPendingLoans, "Pending loans"},
	{MetricOverdueLoans, "Overdue loans"},
}

// Format writes a plain-text rendition of the report with grouped amounts.
func Format(w io.Writer, r Report, tag language.Tag) error {
	p := message.NewPrinter(tag)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	title := fmt.Sprintf("Summary %d", r.Year)
	if r.Month != nil {
		title = fmt.Sprintf("Summary %d-%02d", r.Year, *r.Month)
	}
	if _, err := fmt.Fprintf(tw, "%s\t%s\t\n", title, "count\ttotal"); err != nil {
		return err
	}
	for _, row := range reportLabels {
		agg := r.Total(row.metric)
		p.Fprintf(tw, "%s\t%d\t%s\t\n", row.label, agg.Count, amount(p, agg.Total))
	}
	p.Fprintf(tw, "Members\t%d\t(new %d)\t\n", r.Members.Total, r.Members.New)
	p.Fprintf(tw, "Gross profit\t\t%s\t\n", amount(p, r.Profits.Gross))
	p.Fprintf(tw, "Dividends\t\t%s\t\n", amount(p, r.Profits.Dividends))
	p.Fprintf(tw, "Organisation share\t\t%s\t\n", amount(p, r.Profits.OrganizationShare))
	p.Fprintf(tw, "Credit\t\t%s\t\n", amount(p, r.Profits.Credit))
	p.Fprintf(tw, "Debit\t\t%s\t\n", amount(p, r.Profits.Debit))
	return tw.Flush()
}

func amount(p *message.Printer, v decimal.Decimal) string {
	return p.Sprint(number.Decimal(v.InexactFloat64(), number.Scale(2)))
}
