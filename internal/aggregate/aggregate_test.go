package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ildang/internal/core"
)

func entry(date, location string, amount int64, paid bool) core.WorkLog {
	return core.WorkLog{Date: core.MustParseDate(date), Location: location, Amount: amount, IsPaid: paid}
}

func dayOff(date string) core.WorkLog {
	return core.NewDayOff(core.MustParseDate(date), "")
}

func TestWithholding(t *testing.T) {
	tests := []struct {
		amount int64
		want   int64
	}{
		{0, 0},
		{100, 3},
		{150000, 4950},
		{250000, 8250},
		{333, 10},
		{1000001, 33000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Withholding(tt.amount), "amount %d", tt.amount)
	}
}

func TestGroupByLocation(t *testing.T) {
	logs := []core.WorkLog{
		entry("2024-06-01", "A", 150000, false),
		entry("2024-06-02", "B", 100000, true),
		dayOff("2024-06-03"),
		entry("2024-06-04", "A", 150000, true),
	}

	got := GroupByLocation(logs)
	assert.Equal(t, []LocationSummary{
		{Location: "A", Days: 2, Amount: 300000},
		{Location: "B", Days: 1, Amount: 100000},
	}, got)
}

func TestGroupByLocationCountsEntriesNotDates(t *testing.T) {
	logs := []core.WorkLog{
		entry("2024-06-01", "A", 100000, false),
		entry("2024-06-01", "A", 50000, false),
	}
	got := GroupByLocation(logs)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Days)
}

func TestGroupByLocationEmpty(t *testing.T) {
	assert.Empty(t, GroupByLocation(nil))
	assert.Empty(t, GroupByLocation([]core.WorkLog{dayOff("2024-06-01")}))
}

func TestGroupByMonth(t *testing.T) {
	logs := []core.WorkLog{
		entry("2024-07-02", "B", 200000, false),
		entry("2024-06-01", "A", 150000, false),
		entry("2024-06-02", "A", 150000, true),
		dayOff("2024-06-03"),
	}

	months := GroupByMonth(logs)
	require.Len(t, months, 2)

	june := months[0]
	assert.Equal(t, "2024-06", june.Month)
	assert.Len(t, june.Logs, 3)
	assert.Equal(t, 2, june.TotalDays)
	assert.Equal(t, int64(300000), june.TotalAmount)
	assert.Equal(t, int64(9900), june.TaxAmount)
	assert.Equal(t, int64(290100), june.NetAmount())

	july := months[1]
	assert.Equal(t, "2024-07", july.Month)
	assert.Equal(t, int64(6600), july.TaxAmount)
}

func TestGroupByMonthDayOffOnlyMonth(t *testing.T) {
	months := GroupByMonth([]core.WorkLog{dayOff("2024-06-03")})
	require.Len(t, months, 1)
	assert.Empty(t, months[0].Summary)
	assert.Zero(t, months[0].TotalAmount)
	assert.Zero(t, months[0].TaxAmount)
}

func TestGrandTotalsSumsPerMonthTax(t *testing.T) {
	months := GroupByMonth([]core.WorkLog{
		entry("2024-06-01", "A", 333, false),
		entry("2024-07-01", "A", 333, false),
	})
	totals := GrandTotals(months)
	assert.Equal(t, 2, totals.Days)
	assert.Equal(t, int64(666), totals.Amount)
	// 10 + 10, not floor(666 × 0.033) = 21.
	assert.Equal(t, int64(20), totals.Tax)
	assert.Equal(t, int64(646), totals.Net())
}

func TestSortByDate(t *testing.T) {
	a := entry("2024-06-02", "A", 1, false)
	a.CreatedAt = 5
	b := entry("2024-06-01", "B", 1, false)
	b.CreatedAt = 9
	c := entry("2024-06-02", "C", 1, false)
	c.CreatedAt = 1

	in := []core.WorkLog{a, b, c}
	got := SortByDate(in)
	assert.Equal(t, []string{"B", "C", "A"}, []string{got[0].Location, got[1].Location, got[2].Location})
	assert.Equal(t, "A", in[0].Location)
}

func TestGroupingDoesNotMutateInput(t *testing.T) {
	logs := []core.WorkLog{entry("2024-06-01", "A", 1, false)}
	months := GroupByMonth(logs)
	months[0].Logs[0].Location = "changed"
	assert.Equal(t, "A", logs[0].Location)
}
