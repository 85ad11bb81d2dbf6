package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ildang/internal/core"
)

// Field is an indexed work log field that can be range-queried.
type Field string

const (
	FieldID        Field = "id"
	FieldDate      Field = "date"
	FieldLocation  Field = "location"
	FieldIsPaid    Field = "isPaid"
	FieldCreatedAt Field = "createdAt"
)

// Range selects work logs whose Field lies between Lower and Upper.
//
// A nil bound or a zero core.Date is unbounded. Bounds are inclusive unless the matching Exclude flag
// is set. Results are ordered by Field, then by id, ascending unless Reverse is set.
// Lower greater than Upper selects nothing. The zero Range returns every record by id.
//
// Accepted bound types: core.Date or "YYYY-MM-DD" for FieldDate, string for
// FieldLocation, bool for FieldIsPaid, int64/int/time.Time for FieldCreatedAt and
// int64/int for FieldID.
type Range struct {
	Field        Field
	Lower        any
	Upper        any
	ExcludeLower bool
	ExcludeUpper bool
	Reverse      bool
	Limit        int
}

// DateRange selects records dated within [start, end].
func DateRange(start, end core.Date) Range {
	return Range{Field: FieldDate, Lower: start, Upper: end}
}

// AllByDate selects every record ordered by date.
func AllByDate() Range {
	return Range{Field: FieldDate}
}

// Equal selects records whose field equals v.
func Equal(f Field, v any) Range {
	return Range{Field: f, Lower: v, Upper: v}
}

func (r Range) field() Field {
	if r.Field == "" {
		return FieldID
	}
	return r.Field
}

// Column returns the SQL column backing the range field.
func (r Range) Column() (string, error) {
	switch r.field() {
	case FieldID:
		return "id", nil
	case FieldDate:
		return "date", nil
	case FieldLocation:
		return "location", nil
	case FieldIsPaid:
		return "is_paid", nil
	case FieldCreatedAt:
		return "created_at", nil
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidRange, r.Field)
	}
}

// Bounds normalizes Lower and Upper to comparable keys (string or int64).
func (r Range) Bounds() (lo, hi any, err error) {
	if _, err := r.Column(); err != nil {
		return nil, nil, err
	}
	if lo, err = boundKey(r.field(), r.Lower); err != nil {
		return nil, nil, err
	}
	if hi, err = boundKey(r.field(), r.Upper); err != nil {
		return nil, nil, err
	}
	return lo, hi, nil
}

func boundKey(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	bad := fmt.Errorf("%w: %T bound for field %s", ErrInvalidRange, v, f)
	switch f {
	case FieldDate:
		switch x := v.(type) {
		case core.Date:
			if x.IsZero() {
				return nil, nil
			}
			return x.String(), nil
		case string:
			d, err := core.ParseDate(x)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
			}
			return d.String(), nil
		}
	case FieldLocation:
		if x, ok := v.(string); ok {
			return x, nil
		}
	case FieldIsPaid:
		if x, ok := v.(bool); ok {
			return boolKey(x), nil
		}
	case FieldCreatedAt, FieldID:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case time.Time:
			if f == FieldCreatedAt {
				return x.UnixMilli(), nil
			}
		}
	}
	return nil, bad
}

func boolKey(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// FieldKey returns the comparable key of w for field f.
func FieldKey(f Field, w core.WorkLog) any {
	switch f {
	case FieldDate:
		return w.Date.String()
	case FieldLocation:
		return w.Location
	case FieldIsPaid:
		return boolKey(w.IsPaid)
	case FieldCreatedAt:
		return w.CreatedAt
	default:
		return w.ID
	}
}

// CompareKeys orders two keys produced by FieldKey or Bounds.
func CompareKeys(a, b any) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// Matches reports whether w falls inside the range. Bounds must come from Bounds.
func (r Range) Matches(w core.WorkLog, lo, hi any) bool {
	k := FieldKey(r.field(), w)
	if lo != nil {
		c := CompareKeys(k, lo)
		if c < 0 || (c == 0 && r.ExcludeLower) {
			return false
		}
	}
	if hi != nil {
		c := CompareKeys(k, hi)
		if c > 0 || (c == 0 && r.ExcludeUpper) {
			return false
		}
	}
	return true
}

// Sort orders logs by the range field then id, honouring Reverse and Limit.
func (r Range) Sort(logs []core.WorkLog) []core.WorkLog {
	f := r.field()
	sort.SliceStable(logs, func(i, j int) bool {
		c := CompareKeys(FieldKey(f, logs[i]), FieldKey(f, logs[j]))
		if c == 0 {
			c = CompareKeys(logs[i].ID, logs[j].ID)
		}
		if r.Reverse {
			return c > 0
		}
		return c < 0
	})
	if r.Limit > 0 && len(logs) > r.Limit {
		logs = logs[:r.Limit]
	}
	return logs
}
