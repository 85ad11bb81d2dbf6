package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ildang/internal/aggregate"
	"ildang/internal/core"
)

func logAt(date, location string, amount int64) core.WorkLog {
	return core.WorkLog{Date: core.MustParseDate(date), Location: location, Amount: amount}
}

func TestMonthLabel(t *testing.T) {
	tests := map[string]string{
		"2024-06": "2024년 6월",
		"2024-12": "2024년 12월",
		"2024-13": "2024-13",
		"bogus":   "bogus",
	}
	for in, want := range tests {
		assert.Equal(t, want, MonthLabel(in), in)
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "", Title(nil))
	assert.Equal(t, "2024년 6월", Title([]aggregate.MonthlyData{{Month: "2024-06"}}))
	assert.Equal(t, "2024년 6월–2024년 8월", Title([]aggregate.MonthlyData{
		{Month: "2024-06"}, {Month: "2024-07"}, {Month: "2024-08"},
	}))
}

func TestFromLogs(t *testing.T) {
	settings := core.Settings{UserName: " 홍길동 ", BankName: "농협", BankAccount: "123-45", AccountHolder: "홍길동"}
	logs := []core.WorkLog{
		logAt("2024-06-02", "A", 150000),
		logAt("2024-06-01", "A", 150000),
		core.NewDayOff(core.MustParseDate("2024-06-03"), ""),
	}

	v, err := FromLogs(core.MustParseDate("2024-06-01"), core.MustParseDate("2024-06-30"), logs, settings)
	require.NoError(t, err)

	assert.False(t, v.Empty())
	assert.Equal(t, "2024년 6월", v.Title)
	assert.Equal(t, "홍길동", v.Payee)
	require.Len(t, v.Months, 1)
	assert.Equal(t, int64(9900), v.Months[0].TaxAmount)
	assert.Equal(t, aggregate.Totals{Days: 2, Amount: 300000, Tax: 9900}, v.GrandTotals)
	require.NotNil(t, v.BankInfo)
	assert.Equal(t, "123-45", v.BankInfo.BankAccount)
	require.Len(t, v.Calendars, 1)

	require.Len(t, v.Details, 3)
	assert.Equal(t, "2024-06-01", v.Details[0].Date.String())
	assert.Equal(t, "토", v.Details[0].Weekday)
	assert.True(t, v.Details[2].IsDayOff)
}

func TestBuildWithoutBankAccount(t *testing.T) {
	v := Build(core.Date{}, core.Date{}, nil, nil, core.Settings{BankName: "농협"})
	assert.Nil(t, v.BankInfo)
	assert.True(t, v.Empty())
	assert.NotNil(t, v.Months)
	assert.Empty(t, v.Title)
}

func TestMultiMonthReport(t *testing.T) {
	v, err := FromLogs(core.Date{}, core.Date{}, []core.WorkLog{
		logAt("2024-08-01", "B", 100000),
		logAt("2024-06-01", "A", 100000),
	}, core.Settings{})
	require.NoError(t, err)
	assert.True(t, v.MultiMonth())
	assert.Equal(t, "2024년 6월–2024년 8월", v.Title)
	assert.Equal(t, int64(200000), v.GrandTotals.Amount)
}
