package sheets

import (
	"ildang/internal/aggregate"
	"ildang/internal/report"
)

// Header is the column header of the detail block.
var Header = []any{"날짜", "요일", "현장", "작업", "금액", "입금", "휴무", "메모"}

// MonthRows lays out one month tab: a title, the per-location summary, the totals
// and then every log of the month.
func MonthRows(payee string, m aggregate.MonthlyData) [][]any {
	title := report.MonthLabel(m.Month) + " 노임 청구서"
	if payee != "" {
		title += " - " + payee
	}
	rows := [][]any{
		{title},
		{},
		{"현장", "일수", "금액"},
	}
	for _, s := range m.Summary {
		rows = append(rows, []any{s.Location, s.Days, s.Amount})
	}
	rows = append(rows,
		[]any{"총 근무", m.TotalDays},
		[]any{"청구 금액", "", m.TotalAmount},
		[]any{"원천징수(3.3%)", "", m.TaxAmount},
		[]any{"실수령액", "", m.NetAmount()},
		[]any{},
		Header,
	)
	for _, w := range aggregate.SortByDate(m.Logs) {
		rows = append(rows, []any{
			w.Date.String(),
			aggregate.Weekday(w.Date),
			w.Location,
			w.Task,
			w.Amount,
			yesNo(w.IsPaid),
			yesNo(w.IsDayOff),
			w.Memo,
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "O"
	}
	return ""
}
