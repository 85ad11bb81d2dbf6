// Package core provides amount parsing and formatting utilities.
//
// Amounts are whole won with no minor unit, so every value is an int64.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseAmount converts user input such as "150,000", "150000원" or "15만" to an amount.
//
// Thousands separators and a trailing 원 are ignored. A trailing 만 multiplies by 10,000.
// Zero is accepted; negative or non-numeric input returns ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("150,000")  -> 150000, nil
//	ParseAmount("15만")     -> 150000, nil
//	ParseAmount("-1")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "원")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	multiplier := int64(1)
	if strings.HasSuffix(s, "만") {
		multiplier = 10000
		s = strings.TrimSpace(strings.TrimSuffix(s, "만"))
	}
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 10000
	if v > maxSafe {
		return 0, ErrInvalidAmount
	}
	return v * multiplier, nil
}

// FormatAmount renders an amount with thousands separators, e.g. 150000 -> "150,000".
func FormatAmount(amount int64) string {
	return humanize.Comma(amount)
}

// FormatWon renders an amount followed by the currency suffix, e.g. "150,000원".
func FormatWon(amount int64) string {
	return FormatAmount(amount) + "원"
}
