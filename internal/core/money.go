// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing yen amounts typed by staff and
// formatting them for display.
package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// Yen is a whole-yen amount.
type Yen int64

var ErrInvalidAmount = errors.New("invalid amount")

// ParseYen converts user input to a yen amount.
//
// It accepts digit-group separators (1,500,000), an optional leading ¥ or
// trailing 円, and surrounding whitespace. Empty input is zero; negative or
// fractional values are rejected.
//
// Examples:
//
//	ParseYen("7500")      -> 7500, nil
//	ParseYen("¥1,500,000") -> 1500000, nil
//	ParseYen("")          -> 0, nil
//	ParseYen("-1")        -> 0, ErrInvalidAmount
func ParseYen(s string) (Yen, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	s = strings.TrimSuffix(s, "円")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return Yen(v), nil
}

// String formats the amount with digit grouping, e.g. "¥1,500,000".
func (y Yen) String() string {
	neg := y < 0
	if neg {
		y = -y
	}
	digits := strconv.FormatInt(int64(y), 10)
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}
