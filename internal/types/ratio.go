package types

import (
	"strconv"
	"strings"
)

// ABCRatio is the per-pump participation ratio for nutrient dosing
// (spec.md §3 NutrientPump.abc_ratio). A pump participates iff its entry is
// greater than zero.
type ABCRatio struct {
	A, B, C int
}

// DefaultABCRatio is the safe default "1:1:0" (spec.md §3).
var DefaultABCRatio = ABCRatio{A: 1, B: 1, C: 0}

// ParseABCRatio parses a "a:b:c" string of non-negative integers. Any
// malformed input — wrong arity, non-numeric fields, or a negative value —
// falls back to DefaultABCRatio (spec.md §8 boundary behaviors).
func ParseABCRatio(s string) ABCRatio {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return DefaultABCRatio
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return DefaultABCRatio
		}
		vals[i] = n
	}
	return ABCRatio{A: vals[0], B: vals[1], C: vals[2]}
}

// Slice returns the ratio as [a, b, c], the shape emitted in dosing audit
// events (spec.md end-to-end scenario S1).
func (r ABCRatio) Slice() []int {
	return []int{r.A, r.B, r.C}
}
