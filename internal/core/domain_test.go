package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-06-01", true},
		{" 2024-12-31 ", true},
		{"2024-02-30", false},
		{"2024/06/01", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
			}
			continue
		}
		if d.String() != strings.TrimSpace(tc.in) {
			t.Fatalf("round trip %q got %q", tc.in, d.String())
		}
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2024, 6, 30)
	if d.MonthKey() != "2024-06" {
		t.Fatalf("month key %q", d.MonthKey())
	}
	if got := d.AddDays(1).String(); got != "2024-07-01" {
		t.Fatalf("AddDays got %q", got)
	}
	if !d.Between(NewDate(2024, 6, 1), NewDate(2024, 6, 30)) {
		t.Fatalf("expected date inside inclusive range")
	}
	if d.Between(NewDate(2024, 7, 1), NewDate(2024, 7, 31)) {
		t.Fatalf("expected date outside range")
	}
	if (Date{}).String() != "" || (Date{}).MonthKey() != "" {
		t.Fatalf("zero date must render empty")
	}
}

func TestMonthBounds(t *testing.T) {
	first, last, err := MonthBounds("2024-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.String() != "2024-02-01" || last.String() != "2024-02-29" {
		t.Fatalf("bounds got %s..%s", first, last)
	}
	if _, _, err := MonthBounds("2024-13"); !errors.Is(err, ErrInvalidMonthKey) {
		t.Fatalf("expected ErrInvalidMonthKey, got %v", err)
	}
}

func TestWorkLogJSON(t *testing.T) {
	in := `{"id":7,"date":"2024-06-01","location":"A","task":"철근","amount":150000,"isPaid":true,"isDayOff":false,"memo":"","createdAt":1717200000000}`
	var w WorkLog
	if err := json.Unmarshal([]byte(in), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.ID != 7 || w.Date.String() != "2024-06-01" || w.Amount != 150000 || !w.IsPaid || w.IsDayOff {
		t.Fatalf("unexpected record %+v", w)
	}
	out, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != in {
		t.Fatalf("marshal got %s", out)
	}

	if err := json.Unmarshal([]byte(`{"date":"06/01/2024"}`), &w); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestWorkLogValidate(t *testing.T) {
	good := WorkLog{Date: NewDate(2024, 6, 1), Location: "A", Amount: 150000}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zeroAmount := good
	zeroAmount.Amount = 0
	if err := zeroAmount.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}
	if err := NewDayOff(NewDate(2024, 6, 3), "").Validate(); err != nil {
		t.Fatalf("day off should validate, got %v", err)
	}

	cases := []struct {
		name  string
		log   WorkLog
		field string
		cause error
	}{
		{"zero date", WorkLog{Location: "A"}, "date", ErrInvalidDate},
		{"blank location", WorkLog{Date: NewDate(2024, 6, 1), Location: "  "}, "location", ErrEmptyLocation},
		{"negative amount", WorkLog{Date: NewDate(2024, 6, 1), Location: "A", Amount: -1}, "amount", ErrNegativeAmount},
		{"paid day off", WorkLog{Date: NewDate(2024, 6, 1), Location: DayOffLocation, Amount: 1, IsDayOff: true}, "isDayOff", ErrInvalidDayOff},
		{"reserved location", WorkLog{Date: NewDate(2024, 6, 1), Location: DayOffLocation}, "location", ErrReservedDayOff},
		{"long memo", WorkLog{Date: NewDate(2024, 6, 1), Location: "A", Memo: strings.Repeat("가", 501)}, "memo", ErrFieldTooLong},
	}
	for _, tc := range cases {
		err := tc.log.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if ve.Field != tc.field || !errors.Is(err, tc.cause) {
			t.Fatalf("%s: got field=%s err=%v", tc.name, ve.Field, err)
		}
	}
}

func TestValidateRecordSkipsEntryRules(t *testing.T) {
	imported := []WorkLog{
		{Date: NewDate(2024, 6, 1), Location: "A", Memo: strings.Repeat("가", 600)},
		{Date: NewDate(2024, 6, 1), Location: strings.Repeat("현", 150), Amount: 1},
		{Date: NewDate(2024, 6, 1), Location: DayOffLocation, Amount: 50000},
	}
	for i, w := range imported {
		if err := w.ValidateRecord(); err != nil {
			t.Fatalf("case %d: expected ok, got %v", i, err)
		}
		if err := w.Validate(); err == nil {
			t.Fatalf("case %d: entry validation should reject", i)
		}
	}
	if err := (WorkLog{Date: NewDate(2024, 6, 1), Location: "A", Amount: -1}).ValidateRecord(); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected negative amount, got %v", err)
	}
}

func TestWithLegacyDayOff(t *testing.T) {
	w := WorkLog{Date: NewDate(2024, 6, 2), Location: " " + DayOffLocation}.WithLegacyDayOff()
	if !w.IsDayOff {
		t.Fatalf("zero-amount entry at %s should become a day off", DayOffLocation)
	}
	paid := WorkLog{Date: NewDate(2024, 6, 2), Location: DayOffLocation, Amount: 1}.WithLegacyDayOff()
	if paid.IsDayOff {
		t.Fatalf("entry with an amount must stay a work entry")
	}
}

func TestNormalizeForcesDayOffInvariant(t *testing.T) {
	w := WorkLog{Date: NewDate(2024, 6, 1), Location: " 현장 ", Amount: 5000, IsDayOff: true}.Normalize()
	if w.Location != DayOffLocation || w.Amount != 0 {
		t.Fatalf("normalize kept %q/%d", w.Location, w.Amount)
	}
	w = WorkLog{Location: "  A  ", Task: " 목공 "}.Normalize()
	if w.Location != "A" || w.Task != "목공" {
		t.Fatalf("normalize did not trim: %+v", w)
	}
}

func TestSettingsHelpers(t *testing.T) {
	if !(Settings{}).Blank() {
		t.Fatalf("empty settings should be blank")
	}
	s := Settings{UserName: "홍길동", BankName: "농협"}
	if s.Blank() || s.HasBankInfo() {
		t.Fatalf("bank info needs both name and account")
	}
	s.BankAccount = "123-456"
	if !s.HasBankInfo() {
		t.Fatalf("expected bank info")
	}
}
