package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DayOffLocation is the location recorded on day-off entries.
const DayOffLocation = "휴무"

// DateLayout is the canonical text form of a Date.
const DateLayout = "2006-01-02"

const (
	maxLocationLength = 100
	maxTaskLength     = 100
	maxMemoLength     = 500
)

type (
	// Date is a calendar day without a time component. The zero value means unset.
	Date struct {
		time.Time
	}

	// WorkLog is one record of work performed (or a day off) on a calendar date.
	WorkLog struct {
		ID        int64  `json:"id,omitempty"`
		Date      Date   `json:"date"`
		Location  string `json:"location"`
		Task      string `json:"task"`
		Amount    int64  `json:"amount"`
		IsPaid    bool   `json:"isPaid"`
		IsDayOff  bool   `json:"isDayOff"`
		Memo      string `json:"memo"`
		CreatedAt int64  `json:"createdAt"`
	}

	// Settings is the singleton payee profile printed on claim reports.
	Settings struct {
		ID            int64  `json:"id,omitempty"`
		UserName      string `json:"userName"`
		BankName      string `json:"bankName"`
		BankAccount   string `json:"bankAccount"`
		AccountHolder string `json:"accountHolder"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyLocation   = errors.New("empty location")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDayOff   = errors.New("day-off entry must have zero amount and the day-off location")
	ErrReservedDayOff  = errors.New("location is reserved for day-off entries")
	ErrFieldTooLong    = errors.New("field too long")
	ErrInvalidMonthKey = errors.New("invalid month key")
)

// ValidationError reports a rejected field on a caller-supplied record.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current calendar day in local time.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// MustParseDate is ParseDate for constants and tests.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the YYYY-MM-DD form, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM prefix used to partition records by month.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

// Compare returns -1, 0 or +1 by calendar order.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Between reports whether d lies in [start, end].
func (d Date) Between(start, end Date) bool {
	return d.Compare(start) >= 0 && d.Compare(end) <= 0
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return d.UnmarshalText([]byte(s[1 : len(s)-1]))
}

// MonthBounds returns the first and last day of a YYYY-MM month.
func MonthBounds(monthKey string) (Date, Date, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(monthKey))
	if err != nil {
		return Date{}, Date{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, monthKey)
	}
	first := Date{Time: t}
	last := Date{Time: t.AddDate(0, 1, -1)}
	return first, last, nil
}

// NewDayOff builds a normalized day-off entry for date.
func NewDayOff(date Date, memo string) WorkLog {
	return WorkLog{
		Date:     date,
		Location: DayOffLocation,
		IsDayOff: true,
		Memo:     strings.TrimSpace(memo),
	}
}

// Normalize trims text fields and forces the day-off invariant.
func (w WorkLog) Normalize() WorkLog {
	w.Location = strings.TrimSpace(w.Location)
	w.Task = strings.TrimSpace(w.Task)
	w.Memo = strings.TrimSpace(w.Memo)
	if w.IsDayOff {
		w.Location = DayOffLocation
		w.Amount = 0
	}
	return w
}

// WithLegacyDayOff marks an unflagged zero-amount entry at DayOffLocation as a
// day off. Older files recorded days off by location alone.
func (w WorkLog) WithLegacyDayOff() WorkLog {
	if !w.IsDayOff && w.Amount == 0 && strings.TrimSpace(w.Location) == DayOffLocation {
		w.IsDayOff = true
	}
	return w
}

// ValidateRecord checks the shape every stored record has: a date, a
// non-negative amount, a location on work entries and the day-off invariant.
// Imported records are held to this and nothing more.
func (w WorkLog) ValidateRecord() error {
	if w.Date.IsZero() {
		return invalid("date", ErrInvalidDate)
	}
	if w.Amount < 0 {
		return invalid("amount", ErrNegativeAmount)
	}
	if w.IsDayOff {
		if w.Amount != 0 || w.Location != DayOffLocation {
			return invalid("isDayOff", ErrInvalidDayOff)
		}
	} else if strings.TrimSpace(w.Location) == "" {
		return invalid("location", ErrEmptyLocation)
	}
	return nil
}

// Validate checks a record entered or edited by the user. On top of
// ValidateRecord it reserves the day-off location and caps text lengths.
func (w WorkLog) Validate() error {
	if err := w.ValidateRecord(); err != nil {
		return err
	}
	if !w.IsDayOff && strings.TrimSpace(w.Location) == DayOffLocation {
		return invalid("location", ErrReservedDayOff)
	}
	if utf8.RuneCountInString(w.Location) > maxLocationLength {
		return invalid("location", ErrFieldTooLong)
	}
	if utf8.RuneCountInString(w.Task) > maxTaskLength {
		return invalid("task", ErrFieldTooLong)
	}
	if utf8.RuneCountInString(w.Memo) > maxMemoLength {
		return invalid("memo", ErrFieldTooLong)
	}
	return nil
}

// Blank reports whether no payee field has been filled in.
func (s Settings) Blank() bool {
	return strings.TrimSpace(s.UserName) == "" &&
		strings.TrimSpace(s.BankName) == "" &&
		strings.TrimSpace(s.BankAccount) == "" &&
		strings.TrimSpace(s.AccountHolder) == ""
}

// HasBankInfo reports whether both bank name and account are present.
func (s Settings) HasBankInfo() bool {
	return strings.TrimSpace(s.BankName) != "" && strings.TrimSpace(s.BankAccount) != ""
}
