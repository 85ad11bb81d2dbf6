package aggregate

import (
	"time"

	"ildang/internal/core"
)

// PaidStatus splits earnings into received and still receivable.
type PaidStatus struct {
	Paid   int64 `json:"paid"`
	Unpaid int64 `json:"unpaid"`
}

// Total is paid plus unpaid.
func (p PaidStatus) Total() int64 { return p.Paid + p.Unpaid }

// PaymentStatus sums work-entry amounts by paid flag. Day-offs carry no amount.
func PaymentStatus(logs []core.WorkLog) PaidStatus {
	var p PaidStatus
	for _, w := range logs {
		if w.IsDayOff {
			continue
		}
		if w.IsPaid {
			p.Paid += w.Amount
		} else {
			p.Unpaid += w.Amount
		}
	}
	return p
}

// DayTotal is the state of a single calendar day.
type DayTotal struct {
	Total     int64 `json:"total"`
	HasUnpaid bool  `json:"hasUnpaid"`
	HasLogs   bool  `json:"hasLogs"`
	DayOff    bool  `json:"dayOff"`
}

// DailyTotals indexes logs by date (YYYY-MM-DD).
func DailyTotals(logs []core.WorkLog) map[string]DayTotal {
	out := make(map[string]DayTotal)
	for _, w := range logs {
		key := w.Date.String()
		d := out[key]
		if w.IsDayOff {
			d.DayOff = true
		} else {
			d.HasLogs = true
			d.Total += w.Amount
			if !w.IsPaid {
				d.HasUnpaid = true
			}
		}
		out[key] = d
	}
	return out
}

// CalendarDay is one cell of a month grid.
type CalendarDay struct {
	Date core.Date `json:"date"`
	Day  int       `json:"day"`
	DayTotal
}

// Calendar is a Sunday-first month grid. Leading is the number of blank cells
// before day 1.
type Calendar struct {
	Month   string        `json:"month"`
	Leading int           `json:"leading"`
	Days    []CalendarDay `json:"days"`
}

// Weekdays are the grid column headers, Sunday first.
var Weekdays = [7]string{"일", "월", "화", "수", "목", "금", "토"}

// Weekday returns the short Korean weekday name of d.
func Weekday(d core.Date) string {
	return Weekdays[d.Weekday()]
}

// BuildCalendar lays out month (YYYY-MM) with the totals of the logs dated in it.
func BuildCalendar(month string, logs []core.WorkLog) (Calendar, error) {
	first, last, err := core.MonthBounds(month)
	if err != nil {
		return Calendar{}, err
	}

	totals := DailyTotals(logs)
	cal := Calendar{
		Month:   month,
		Leading: int(first.Weekday() - time.Sunday),
		Days:    make([]CalendarDay, 0, last.Day()),
	}
	for d := first; d.Compare(last) <= 0; d = d.AddDays(1) {
		cal.Days = append(cal.Days, CalendarDay{
			Date:     d,
			Day:      d.Day(),
			DayTotal: totals[d.String()],
		})
	}
	return cal, nil
}

// Cells returns the grid as rows of seven, with nil for blank cells.
func (c Calendar) Cells() [][]*CalendarDay {
	total := c.Leading + len(c.Days)
	rows := make([][]*CalendarDay, 0, (total+6)/7)
	row := make([]*CalendarDay, 0, 7)
	for i := 0; i < c.Leading; i++ {
		row = append(row, nil)
	}
	for i := range c.Days {
		row = append(row, &c.Days[i])
		if len(row) == 7 {
			rows = append(rows, row)
			row = make([]*CalendarDay, 0, 7)
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, nil)
		}
		rows = append(rows, row)
	}
	return rows
}
