package scenario

import (
	"fmt"
	"regexp"
	"strconv"

	errUtils "github.com/scenforge/scenforge/errors"
)

// DefaultYearStep is the step used by year ranges with no explicit ":step".
const DefaultYearStep = 5

// yearRangePattern matches "YYYY-YYYY" with an optional ":step" suffix.
var yearRangePattern = regexp.MustCompile(`^(\d{4})-(\d{4})(:(\d+))?$`)

// YearValue pairs one explicit year with a value.
type YearValue struct {
	Year  int
	Value float64
}

// ExpandYearRanges expands (year, value) pairs whose year may be a range
// shorthand: "YYYY" for a single year, "YYYY-YYYY" for an inclusive range at
// the default 5-unit step, or "YYYY-YYYY:N" at step N. Ranges expand to one
// pair per year; order is preserved. Malformed specifications fail fast.
func ExpandYearRanges(pairs []RawYearValue) ([]YearValue, error) {
	var out []YearValue

	for _, pair := range pairs {
		expanded, err := expandOne(pair)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}

	return out, nil
}

// RawYearValue is an unexpanded pair: Year is a literal year or a range
// shorthand string.
type RawYearValue struct {
	Year  string
	Value float64
}

func expandOne(pair RawYearValue) ([]YearValue, error) {
	if m := yearRangePattern.FindStringSubmatch(pair.Year); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		step := DefaultYearStep
		if m[4] != "" {
			step, _ = strconv.Atoi(m[4])
		}
		if step <= 0 || end < start {
			return nil, fmt.Errorf("%w: %q", errUtils.ErrBadYearRange, pair.Year)
		}

		var out []YearValue
		for y := start; y <= end; y += step {
			out = append(out, YearValue{Year: y, Value: pair.Value})
		}
		return out, nil
	}

	year, err := strconv.Atoi(pair.Year)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errUtils.ErrBadYearRange, pair.Year)
	}
	return []YearValue{{Year: year, Value: pair.Value}}, nil
}
