package sheets

import (
	"context"

	"ildang/internal/aggregate"
	"ildang/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportWriter mirrors monthly claim summaries into a spreadsheet, one tab per month.
	ReportWriter interface {
		// WriteMonth replaces the tab of m.Month with the rows of m.
		WriteMonth(ctx context.Context, payee string, m aggregate.MonthlyData) (tabRef string, err error)
		// DeleteMonth removes the tab of month. Missing tabs are not an error.
		DeleteMonth(ctx context.Context, month string) error
		// Months lists the month keys that currently have a tab, ascending.
		Months(ctx context.Context) ([]string, error)
	}
)

// TabName is the tab title of a YYYY-MM month, e.g. "2024년 6월".
func TabName(month string) string {
	return report.MonthLabel(month)
}
