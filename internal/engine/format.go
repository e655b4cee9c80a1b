package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// groupDigits inserts comma separators into a non-negative digit string.
func groupDigits(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	rem := n % 3
	if rem > 0 {
		b.WriteString(digits[:rem])
	}
	for i := rem; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// naira renders a whole-naira amount, e.g. -1234567 -> "-₦1,234,567".
func naira(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "₦" + groupDigits(strconv.FormatInt(amount, 10))
}

// nairaF renders a fractional naira amount with two decimals.
func nairaF(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	return sign + "₦" + groupDigits(s[:dot]) + s[dot:]
}

// percent renders a fractional rate, e.g. 0.075 -> "7.5%".
func percent(rate float64) string {
	s := strconv.FormatFloat(rate*100, 'f', -1, 64)
	return s + "%"
}

// nairaDecimalString formats a decimal string (shopspring String output)
// with comma grouping on the integer part.
func nairaDecimalString(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}
	return fmt.Sprintf("%s₦%s%s", sign, groupDigits(intPart), frac)
}
