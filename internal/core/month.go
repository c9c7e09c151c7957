package core

import (
	"fmt"
	"strconv"
	"strings"
)

// YearMonth is a calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

// ParseYearMonth parses a strict YYYY-MM key.
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return YearMonth{}, ErrInvalidMonthKey
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y < 1 {
		return YearMonth{}, ErrInvalidMonthKey
	}
	m, err := strconv.Atoi(s[5:])
	if err != nil || m < 1 || m > 12 {
		return YearMonth{}, ErrInvalidMonthKey
	}
	return YearMonth{Year: y, Month: m}, nil
}

// Next returns the following calendar month, wrapping December into January.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == 12 {
		return YearMonth{Year: ym.Year + 1, Month: 1}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}
