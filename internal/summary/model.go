// Package summary rolls ledger tables up into monthly and yearly reports.
package summary

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Metric names one aggregated ledger series.
type Metric string

const (
	MetricDeposits               Metric = "deposits"
	MetricInstallments           Metric = "installments"
	MetricLoansSupplied          Metric = "loans_supplied"
	MetricRegistrationFees       Metric = "registration_fees"
	MetricDepositOverdueCharges  Metric = "deposit_overdue_charges"
	MetricDepositOverduePayments Metric = "deposit_overdue_payments"
	MetricLoanOverdueCharges     Metric = "loan_overdue_charges"
	MetricLoanOverduePayments    Metric = "loan_overdue_payments"
	MetricPaidLoanInterest       Metric = "paid_loan_interest"
	MetricPaidLoans              Metric = "paid_loans"
	MetricPendingLoans           Metric = "pending_loans"
	MetricOverdueLoans           Metric = "overdue_loans"
)

// reportMetrics are summed for every report.
var reportMetrics = []Metric{
	MetricDeposits,
	MetricInstallments,
	MetricLoansSupplied,
	MetricRegistrationFees,
	MetricDepositOverdueCharges,
	MetricDepositOverduePayments,
	MetricLoanOverdueCharges,
	MetricLoanOverduePayments,
	MetricPaidLoanInterest,
	MetricPaidLoans,
	MetricPendingLoans,
	MetricOverdueLoans,
}

// monthMetrics are summed per period in the monthly records view.
var monthMetrics = []Metric{
	MetricDeposits,
	MetricInstallments,
	MetricLoansSupplied,
	MetricRegistrationFees,
	MetricDepositOverdueCharges,
	MetricDepositOverduePayments,
	MetricLoanOverdueCharges,
	MetricLoanOverduePayments,
}

// comparisonMetrics are summed per year in the year comparison.
var comparisonMetrics = []Metric{
	MetricDeposits,
	MetricInstallments,
	MetricLoansSupplied,
	MetricRegistrationFees,
	MetricDepositOverduePayments,
	MetricLoanOverduePayments,
	MetricPaidLoanInterest,
}

// Aggregate is a row count and amount total. Empty windows yield zeros.
type Aggregate struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// MemberCounts counts members registered before and during a window.
type MemberCounts struct {
	Total int64 `json:"total"`
	New   int64 `json:"new"`
}

// Profits is the distribution of the window's income.
type Profits struct {
	Gross             decimal.Decimal `json:"gross_profit"`
	Dividends         decimal.Decimal `json:"dividends"`
	OrganizationShare decimal.Decimal `json:"organization_share"`
	Credit            decimal.Decimal `json:"credit"`
	Debit             decimal.Decimal `json:"debit"`
}

// Report is the rollup of one month or year.
type Report struct {
	Year    int                  `json:"year"`
	Month   *int                 `json:"month,omitempty"`
	From    time.Time            `json:"from"`
	To      time.Time            `json:"to"`
	Totals  map[Metric]Aggregate `json:"totals"`
	Members MemberCounts         `json:"members"`
	Profits Profits              `json:"profits"`
}

// Total returns the aggregate for m, zero when absent.
func (r Report) Total(m Metric) Aggregate {
	if agg, ok := r.Totals[m]; ok {
		return agg
	}
	return Aggregate{Total: decimal.Zero}
}

// MonthRecord is one row of the monthly records summary.
type MonthRecord struct {
	Period string               `json:"period"`
	From   time.Time            `json:"from"`
	To     time.Time            `json:"to"`
	Totals map[Metric]Aggregate `json:"totals"`
}

// YearComparison is one row of the year comparison.
type YearComparison struct {
	Year   int                        `json:"year"`
	Totals map[Metric]decimal.Decimal `json:"totals"`
}

// WindowError rejects an unusable year or month.
type WindowError struct {
	Year  int
	Month int
}

func (e *WindowError) Error() string {
	if e.Month != 0 {
		return fmt.Sprintf("summary: invalid month %d of %d", e.Month, e.Year)
	}
	return fmt.Sprintf("summary: invalid year %d", e.Year)
}

func (e *WindowError) StatusCode() int { return http.StatusBadRequest }
