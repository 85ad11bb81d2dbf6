package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"ildang/internal/report"
)

// Sheet names of the spreadsheet artifact.
const (
	SummarySheet = "요약"
	DetailSheet  = "상세"
)

// ToXLSX writes the claim as a workbook with a per-month summary sheet and a
// detail sheet.
func ToXLSX(v report.ReportView) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for _, name := range []string{SummarySheet, DetailSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(SummarySheet)
	if err != nil {
		return nil, fmt.Errorf("find summary sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeSummary(f, v); err != nil {
		return nil, err
	}
	if err := writeDetails(f, v); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeSummary(f *excelize.File, v report.ReportView) error {
	title := v.Title
	if v.Payee != "" {
		title += " - " + v.Payee
	}
	rows := [][]any{
		{title + " 노임 청구서"},
		{"월", "현장", "일수", "금액"},
	}
	for _, m := range v.Months {
		label := report.MonthLabel(m.Month)
		for _, s := range m.Summary {
			rows = append(rows, []any{label, s.Location, s.Days, s.Amount})
		}
		rows = append(rows,
			[]any{label, "합계", m.TotalDays, m.TotalAmount},
			[]any{label, "원천징수(3.3%)", "", m.TaxAmount},
			[]any{label, "실수령액", "", m.NetAmount()},
		)
	}
	if v.MultiMonth() {
		t := v.GrandTotals
		rows = append(rows,
			[]any{"전체", "합계", t.Days, t.Amount},
			[]any{"전체", "원천징수(3.3%)", "", t.Tax},
			[]any{"전체", "실수령액", "", t.Net()},
		)
	}
	if b := v.BankInfo; b != nil {
		rows = append(rows, []any{}, []any{"입금 계좌", b.BankName, b.BankAccount, b.AccountHolder})
	}

	for i, r := range rows {
		if err := setRow(f, SummarySheet, i+1, r...); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 14)
	_ = f.SetColWidth(SummarySheet, "B", "B", 20)
	_ = f.SetColWidth(SummarySheet, "C", "C", 8)
	_ = f.SetColWidth(SummarySheet, "D", "D", 14)
	return nil
}

func writeDetails(f *excelize.File, v report.ReportView) error {
	if err := setRow(f, DetailSheet, 1, "날짜", "요일", "현장", "금액", "입금", "휴무", "메모"); err != nil {
		return err
	}
	for i, d := range v.Details {
		paid := ""
		if d.IsPaid {
			paid = "O"
		}
		off := ""
		if d.IsDayOff {
			off = "O"
		}
		if err := setRow(f, DetailSheet, i+2, d.Date.String(), d.Weekday, d.Location, d.Amount, paid, off, d.Memo); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(DetailSheet, "A", "A", 12)
	_ = f.SetColWidth(DetailSheet, "C", "C", 20)
	_ = f.SetColWidth(DetailSheet, "D", "D", 12)
	_ = f.SetColWidth(DetailSheet, "G", "G", 30)
	return nil
}
