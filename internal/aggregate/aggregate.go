// Package aggregate groups work logs into per-location and per-month summaries.
//
// Every function here is pure: the input is never modified and the output depends
// only on the input.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"ildang/internal/core"
)

// WithholdingRate is the flat 3.3% withholding estimate applied to gross earnings.
var WithholdingRate = decimal.RequireFromString("0.033")

// LocationSummary totals the work done at one site.
//
// Days counts log entries, not distinct calendar dates: two entries at the same
// site on one date count as two days.
type LocationSummary struct {
	Location string `json:"location"`
	Days     int    `json:"days"`
	Amount   int64  `json:"amount"`
}

// MonthlyData is the summary of one calendar month.
type MonthlyData struct {
	Month       string            `json:"month"`
	Logs        []core.WorkLog    `json:"logs"`
	Summary     []LocationSummary `json:"summary"`
	TotalDays   int               `json:"totalDays"`
	TotalAmount int64             `json:"totalAmount"`
	TaxAmount   int64             `json:"taxAmount"`
}

// NetAmount is the total after withholding.
func (m MonthlyData) NetAmount() int64 {
	return m.TotalAmount - m.TaxAmount
}

// Totals are the grand totals across months.
type Totals struct {
	Days   int   `json:"days"`
	Amount int64 `json:"amount"`
	Tax    int64 `json:"tax"`
}

// Net is the grand total after withholding.
func (t Totals) Net() int64 {
	return t.Amount - t.Tax
}

// Withholding returns floor(amount × 3.3%), computed exactly.
func Withholding(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(WithholdingRate).Floor().IntPart()
}

// GroupByLocation totals non-day-off logs per location, in first-seen order.
func GroupByLocation(logs []core.WorkLog) []LocationSummary {
	out := []LocationSummary{}
	index := make(map[string]int)
	for _, w := range logs {
		if w.IsDayOff {
			continue
		}
		i, ok := index[w.Location]
		if !ok {
			i = len(out)
			index[w.Location] = i
			out = append(out, LocationSummary{Location: w.Location})
		}
		out[i].Days++
		out[i].Amount += w.Amount
	}
	return out
}

// GroupByMonth partitions logs by YYYY-MM, ascending by month. Logs keep their
// input order inside each month.
func GroupByMonth(logs []core.WorkLog) []MonthlyData {
	byMonth := make(map[string][]core.WorkLog)
	var keys []string
	for _, w := range logs {
		k := w.Date.MonthKey()
		if _, ok := byMonth[k]; !ok {
			keys = append(keys, k)
		}
		byMonth[k] = append(byMonth[k], w)
	}
	sort.Strings(keys)

	out := make([]MonthlyData, 0, len(keys))
	for _, k := range keys {
		out = append(out, Summarize(k, byMonth[k]))
	}
	return out
}

// Summarize builds the MonthlyData for logs that all belong to month.
func Summarize(month string, logs []core.WorkLog) MonthlyData {
	m := MonthlyData{
		Month:   month,
		Logs:    append([]core.WorkLog(nil), logs...),
		Summary: GroupByLocation(logs),
	}
	for _, s := range m.Summary {
		m.TotalDays += s.Days
		m.TotalAmount += s.Amount
	}
	m.TaxAmount = Withholding(m.TotalAmount)
	return m
}

// GrandTotals sums the month totals. Tax is the sum of each month's withholding.
func GrandTotals(months []MonthlyData) Totals {
	var t Totals
	for _, m := range months {
		t.Days += m.TotalDays
		t.Amount += m.TotalAmount
		t.Tax += m.TaxAmount
	}
	return t
}

// SortByDate returns a copy of logs ordered by date, then creation time, then id.
func SortByDate(logs []core.WorkLog) []core.WorkLog {
	out := append([]core.WorkLog(nil), logs...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}
