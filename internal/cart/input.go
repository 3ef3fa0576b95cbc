package cart

import (
	"math"
	"strconv"
	"strings"
)

// Input holds a numeric field exactly as the cashier typed it. Raw text is
// kept so an empty or half-typed value survives until checkout, where it is
// replaced by a default.
type Input struct {
	Raw   string
	Value float64
	Valid bool
}

func ParseInput(raw string) Input {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Input{Raw: raw}
	}
	return Input{Raw: raw, Value: v, Valid: true}
}

func NumberInput(v float64) Input {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Input{Raw: ""}
	}
	return Input{Raw: strconv.FormatFloat(v, 'f', -1, 64), Value: v, Valid: true}
}

// Number is the value used for live totals; invalid input counts as zero.
func (in Input) Number() float64 {
	if !in.Valid {
		return 0
	}
	return in.Value
}

func (in Input) String() string {
	return in.Raw
}

func (in Input) isWhole() bool {
	return in.Valid && in.Value == math.Trunc(in.Value)
}
