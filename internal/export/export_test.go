package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ildang/internal/core"
	"ildang/internal/report"
)

func work(date, location string, amount int64, paid bool) core.WorkLog {
	return core.WorkLog{Date: core.MustParseDate(date), Location: location, Amount: amount, IsPaid: paid}
}

func juneView(t *testing.T) report.ReportView {
	t.Helper()
	v, err := report.FromLogs(core.MustParseDate("2024-06-01"), core.MustParseDate("2024-06-30"), []core.WorkLog{
		work("2024-06-01", "A", 150000, true),
		work("2024-06-02", "A", 150000, false),
		core.NewDayOff(core.MustParseDate("2024-06-03"), ""),
		work("2024-06-04", "B", 100000, false),
	}, core.Settings{UserName: "홍길동", BankName: "농협", BankAccount: "123-4567-89", AccountHolder: "홍길동"})
	require.NoError(t, err)
	return v
}

func TestToText(t *testing.T) {
	want := `[2024년 6월 노임 청구서 - 홍길동]

■ 2024년 6월 현장별 요약
1. A : 2일 / 300,000원
2. B : 1일 / 100,000원
--------------------
총 근무: 3일
청구 금액: 400,000원
원천징수(3.3%): 13,200원
실수령액: 386,800원

■ 2024년 6월 상세 내역
6/1(토) A : 150,000원
6/2(일) A : 150,000원
6/3(월) 휴무
6/4(화) B : 100,000원

[입금 계좌]
농협 123-4567-89
예금주: 홍길동
`
	v := juneView(t)
	assert.Equal(t, want, ToText(v, DefaultOptions))
	assert.Equal(t, ToText(v, DefaultOptions), ToText(v, DefaultOptions))
}

func TestToTextWithoutAmounts(t *testing.T) {
	want := `[2024년 6월 노임 청구서 - 홍길동]

■ 2024년 6월 현장별 요약
1. A : 2일
2. B : 1일
--------------------
총 근무: 3일

[입금 계좌]
농협 123-4567-89
예금주: 홍길동
`
	assert.Equal(t, want, ToText(juneView(t), Options{}))
}

func TestToTextMultiMonthHasGrandTotal(t *testing.T) {
	v, err := report.FromLogs(core.Date{}, core.Date{}, []core.WorkLog{
		work("2024-06-01", "A", 100000, false),
		work("2024-07-01", "A", 100000, false),
	}, core.Settings{})
	require.NoError(t, err)

	out := ToText(v, Options{ShowAmount: true})
	assert.Contains(t, out, "[2024년 6월–2024년 7월 노임 청구서]")
	assert.Contains(t, out, "■ 전체 합계\n총 근무: 2일\n청구 금액: 200,000원\n원천징수(3.3%): 6,600원\n실수령액: 193,400원")
	assert.NotContains(t, out, "입금 계좌")
	assert.NotContains(t, out, "상세 내역")
}

func TestToTextEmpty(t *testing.T) {
	v := report.Build(core.MustParseDate("2024-06-01"), core.MustParseDate("2024-06-30"), nil, nil, core.Settings{})
	assert.Equal(t, "[2024년 6월 노임 청구서]\n\n기록이 없습니다.\n", ToText(v, DefaultOptions))
}

func TestToImage(t *testing.T) {
	v := juneView(t)
	var got report.ReportView
	r := RendererFunc(func(_ context.Context, rv report.ReportView) ([]byte, error) {
		got = rv
		return []byte("png"), nil
	})

	b, err := ToImage(context.Background(), r, v)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), b)
	assert.Equal(t, v.Title, got.Title)

	boom := errors.New("boom")
	_, err = ToImage(context.Background(), RendererFunc(func(context.Context, report.ReportView) ([]byte, error) {
		return nil, boom
	}), v)
	assert.ErrorIs(t, err, boom)

	_, err = ToImage(context.Background(), nil, v)
	assert.ErrorIs(t, err, ErrNoRenderer)

	_, err = ToImage(context.Background(), r, report.Build(core.Date{}, core.Date{}, nil, nil, core.Settings{}))
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "노임청구서_2024-06-30.pdf", FileName(ClaimFilePrefix, at, FormatPDF))
	assert.Equal(t, "application/pdf", ContentType(FormatPDF))
	assert.Equal(t, "application/octet-stream", ContentType("zip"))
}

func TestToXLSX(t *testing.T) {
	b, err := ToXLSX(juneView(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SummarySheet, DetailSheet}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, "2024년 6월 - 홍길동 노임 청구서", summary[0][0])
	assert.Equal(t, []string{"2024년 6월", "A", "2", "300000"}, summary[2])
	assert.Equal(t, []string{"2024년 6월", "원천징수(3.3%)", "", "13200"}, summary[5])

	details, err := f.GetRows(DetailSheet)
	require.NoError(t, err)
	require.Len(t, details, 5)
	assert.Equal(t, "2024-06-01", details[1][0])
	assert.Equal(t, "O", details[1][4])
}
