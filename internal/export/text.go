// Package export serializes a report.ReportView into shareable artifacts: plain
// text for messaging apps, spreadsheets, and rendered documents.
package export

import (
	"fmt"
	"strings"

	"ildang/internal/aggregate"
	"ildang/internal/core"
	"ildang/internal/report"
)

const separator = "--------------------"

// Options controls what ToText includes.
type Options struct {
	// ShowAmount prints amounts, withholding and net lines. When false only day
	// counts are shown.
	ShowAmount bool
	// ShowDetails appends a dated line per log under each month.
	ShowDetails bool
}

// DefaultOptions shows everything.
var DefaultOptions = Options{ShowAmount: true, ShowDetails: true}

// ToText renders the claim as plain text. The output depends only on v and opts.
func ToText(v report.ReportView, opts Options) string {
	sections := []string{header(v)}
	if v.Empty() {
		sections = append(sections, "기록이 없습니다.")
		return strings.Join(sections, "\n\n") + "\n"
	}

	for _, m := range v.Months {
		sections = append(sections, monthSection(m, opts))
		if opts.ShowDetails {
			sections = append(sections, detailSection(m.Month, v.Details, opts))
		}
	}
	if v.MultiMonth() {
		sections = append(sections, grandSection(v.GrandTotals, opts))
	}
	if v.BankInfo != nil {
		sections = append(sections, bankSection(*v.BankInfo))
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func header(v report.ReportView) string {
	title := v.Title
	if title == "" {
		title = rangeLabel(v.RangeStart, v.RangeEnd)
	}
	if v.Payee == "" {
		return fmt.Sprintf("[%s 노임 청구서]", title)
	}
	return fmt.Sprintf("[%s 노임 청구서 - %s]", title, v.Payee)
}

func rangeLabel(start, end core.Date) string {
	switch {
	case start.IsZero() && end.IsZero():
		return "전체"
	case start.MonthKey() == end.MonthKey():
		return report.MonthLabel(start.MonthKey())
	}
	return start.String() + " ~ " + end.String()
}

func monthSection(m aggregate.MonthlyData, opts Options) string {
	lines := []string{fmt.Sprintf("■ %s 현장별 요약", report.MonthLabel(m.Month))}
	for i, s := range m.Summary {
		line := fmt.Sprintf("%d. %s : %d일", i+1, s.Location, s.Days)
		if opts.ShowAmount {
			line += " / " + core.FormatWon(s.Amount)
		}
		lines = append(lines, line)
	}
	lines = append(lines, separator)
	lines = append(lines, totalLines(m.TotalDays, m.TotalAmount, m.TaxAmount, opts)...)
	return strings.Join(lines, "\n")
}

func totalLines(days int, amount, tax int64, opts Options) []string {
	lines := []string{fmt.Sprintf("총 근무: %d일", days)}
	if opts.ShowAmount {
		lines = append(lines,
			"청구 금액: "+core.FormatWon(amount),
			"원천징수(3.3%): "+core.FormatWon(tax),
			"실수령액: "+core.FormatWon(amount-tax),
		)
	}
	return lines
}

func detailSection(month string, details []report.DetailLine, opts Options) string {
	lines := []string{fmt.Sprintf("■ %s 상세 내역", report.MonthLabel(month))}
	for _, d := range details {
		if d.Date.MonthKey() != month {
			continue
		}
		lines = append(lines, DetailText(d, opts.ShowAmount))
	}
	return strings.Join(lines, "\n")
}

// DetailText formats one detail line, e.g. "6/1(토) A : 150,000원".
func DetailText(d report.DetailLine, showAmount bool) string {
	day := fmt.Sprintf("%d/%d(%s)", int(d.Date.Month()), d.Date.Day(), d.Weekday)
	if d.IsDayOff {
		return day + " " + core.DayOffLocation
	}
	if !showAmount {
		return day + " " + d.Location
	}
	return fmt.Sprintf("%s %s : %s", day, d.Location, core.FormatWon(d.Amount))
}

func grandSection(t aggregate.Totals, opts Options) string {
	lines := append([]string{"■ 전체 합계"}, totalLines(t.Days, t.Amount, t.Tax, opts)...)
	return strings.Join(lines, "\n")
}

func bankSection(b report.BankInfo) string {
	lines := []string{"[입금 계좌]", b.BankName + " " + b.BankAccount}
	if b.AccountHolder != "" {
		lines = append(lines, "예금주: "+b.AccountHolder)
	}
	return strings.Join(lines, "\n")
}
