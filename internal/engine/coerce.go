package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// decimalPattern accepts plain integers and decimals with an optional
// exponent. It rejects the hex, "inf" and "nan" forms strconv would take.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Operand is a comparison side after coercion: a number when the text
// parses as one, otherwise the trimmed string.
type Operand struct {
	Text    string
	Num     float64
	Numeric bool
}

// Coerce trims s and parses it as a number when possible.
func Coerce(s string) Operand {
	t := strings.TrimSpace(s)
	op := Operand{Text: t}
	if decimalPattern.MatchString(t) {
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			op.Num = n
			op.Numeric = true
		}
	}
	return op
}

// CoerceValue coerces a resolved event value through its text form, so
// 20 and "20" compare the same way.
func CoerceValue(v Value) Operand {
	return Coerce(v.Text())
}

// Compare orders two operands: numerically when both are numbers,
// lexically otherwise.
func Compare(a, b Operand) int {
	if a.Numeric && b.Numeric {
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.Text, b.Text)
}
