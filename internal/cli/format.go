// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatMoney formats a dollar amount with comma separators and cents.
// e.g., 525000 -> "$525,000.00"
func FormatMoney(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return "$" + s
	}
	out := "$" + FormatNumber(n) + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// FormatPct formats a percentage value already expressed in percent.
// e.g., 2.5 -> "2.5%"
func FormatPct(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	return d.String() + "%"
}

// FormatDaysRemaining renders a signed day count relative to today.
func FormatDaysRemaining(n *int) string {
	if n == nil {
		return ""
	}
	switch v := *n; {
	case v == 0:
		return "today"
	case v == 1:
		return "tomorrow"
	case v == -1:
		return "1 day late"
	case v < 0:
		return fmt.Sprintf("%d days late", -v)
	default:
		return fmt.Sprintf("in %d days", v)
	}
}

// FormatDay renders a date as "Mon Mar 04".
func FormatDay(t time.Time) string {
	return t.Format("Mon Jan 02")
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}

// Truncate shortens s to max runes, marking the cut with "…".
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
