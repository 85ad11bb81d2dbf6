// Package report assembles aggregated months and payee settings into a ReportView
// ready to be serialized or rendered.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"ildang/internal/aggregate"
	"ildang/internal/core"
)

// TitleSeparator joins the first and last month labels of a multi-month title.
const TitleSeparator = "–"

type (
	// BankInfo is the payment account printed at the end of a claim.
	BankInfo struct {
		BankName      string `json:"bankName"`
		BankAccount   string `json:"bankAccount"`
		AccountHolder string `json:"accountHolder,omitempty"`
	}

	// DetailLine is one dated entry in the detail listing.
	DetailLine struct {
		Date     core.Date `json:"date"`
		Weekday  string    `json:"weekday"`
		Location string    `json:"location"`
		Amount   int64     `json:"amount"`
		IsPaid   bool      `json:"isPaid"`
		IsDayOff bool      `json:"isDayOff,omitempty"`
		Memo     string    `json:"memo,omitempty"`
	}

	// ReportView is the assembled claim over a date range.
	ReportView struct {
		Title       string                  `json:"title"`
		RangeStart  core.Date               `json:"rangeStart"`
		RangeEnd    core.Date               `json:"rangeEnd"`
		Payee       string                  `json:"payee"`
		Months      []aggregate.MonthlyData `json:"months"`
		Calendars   []aggregate.Calendar    `json:"calendars,omitempty"`
		GrandTotals aggregate.Totals        `json:"grandTotals"`
		BankInfo    *BankInfo               `json:"bankInfo,omitempty"`
		Details     []DetailLine            `json:"details"`
	}
)

// Empty reports whether the range held no logs. Callers show a "no records" state
// instead of rendering an empty claim.
func (v ReportView) Empty() bool {
	return len(v.Months) == 0
}

// MultiMonth reports whether the claim spans more than one month.
func (v ReportView) MultiMonth() bool {
	return len(v.Months) > 1
}

// MonthLabel renders a YYYY-MM key as "2024년 6월". Keys that do not parse are
// returned unchanged.
func MonthLabel(monthKey string) string {
	year, month, ok := strings.Cut(monthKey, "-")
	if !ok {
		return monthKey
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return monthKey
	}
	return fmt.Sprintf("%s년 %d월", year, m)
}

// Title derives the report title from the first and last month.
func Title(months []aggregate.MonthlyData) string {
	switch len(months) {
	case 0:
		return ""
	case 1:
		return MonthLabel(months[0].Month)
	}
	first := MonthLabel(months[0].Month)
	last := MonthLabel(months[len(months)-1].Month)
	if first == last {
		return first
	}
	return first + TitleSeparator + last
}

// Build assembles a ReportView from aggregation output. It does not recompute
// any totals beyond summing the given months.
func Build(start, end core.Date, months []aggregate.MonthlyData, calendars []aggregate.Calendar, settings core.Settings) ReportView {
	v := ReportView{
		Title:       Title(months),
		RangeStart:  start,
		RangeEnd:    end,
		Payee:       strings.TrimSpace(settings.UserName),
		Months:      months,
		Calendars:   calendars,
		GrandTotals: aggregate.GrandTotals(months),
		Details:     []DetailLine{},
	}
	if v.Months == nil {
		v.Months = []aggregate.MonthlyData{}
	}
	if settings.HasBankInfo() {
		v.BankInfo = &BankInfo{
			BankName:      strings.TrimSpace(settings.BankName),
			BankAccount:   strings.TrimSpace(settings.BankAccount),
			AccountHolder: strings.TrimSpace(settings.AccountHolder),
		}
	}
	for _, m := range months {
		for _, w := range m.Logs {
			v.Details = append(v.Details, DetailLine{
				Date:     w.Date,
				Weekday:  aggregate.Weekday(w.Date),
				Location: w.Location,
				Amount:   w.Amount,
				IsPaid:   w.IsPaid,
				IsDayOff: w.IsDayOff,
				Memo:     w.Memo,
			})
		}
	}
	return v
}

// FromLogs runs the aggregation engine over logs and builds the view.
func FromLogs(start, end core.Date, logs []core.WorkLog, settings core.Settings) (ReportView, error) {
	months := aggregate.GroupByMonth(aggregate.SortByDate(logs))
	calendars := make([]aggregate.Calendar, 0, len(months))
	for _, m := range months {
		cal, err := aggregate.BuildCalendar(m.Month, m.Logs)
		if err != nil {
			return ReportView{}, fmt.Errorf("build calendar %s: %w", m.Month, err)
		}
		calendars = append(calendars, cal)
	}
	return Build(start, end, months, calendars, settings), nil
}
