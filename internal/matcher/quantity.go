package matcher

import "fmt"

// QuantityKind distinguishes a fixed unit count from a range
type QuantityKind int

const (
	QuantityFixed QuantityKind = iota
	QuantityRange
)

// Quantity is how many units of a slot a room receives: either Fixed(n) or Between(min, max).
type Quantity struct {
	kind QuantityKind
	n    int
	min  int
	max  int
}

// Fixed returns a quantity of exactly n units (at least one)
func Fixed(n int) Quantity {
	if n < 1 {
		n = 1
	}
	return Quantity{kind: QuantityFixed, n: n}
}

// Between returns a ranged quantity. Bounds are normalised so that 0 <= min <= max and max >= 1.
func Between(min, max int) Quantity {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	if max < 1 {
		max = 1
	}
	return Quantity{kind: QuantityRange, min: min, max: max}
}

// Kind returns the variant tag
func (q Quantity) Kind() QuantityKind {
	return q.kind
}

// Min returns the smallest acceptable unit count
func (q Quantity) Min() int {
	if q.kind == QuantityRange {
		return q.min
	}
	return q.Resolve()
}

// Max returns the largest acceptable unit count
func (q Quantity) Max() int {
	if q.kind == QuantityRange {
		return q.max
	}
	return q.Resolve()
}

// Resolve returns the concrete unit count requested from the catalog.
// Ranges resolve to their upper bound; units beyond what the budget allows are simply not bought.
func (q Quantity) Resolve() int {
	switch q.kind {
	case QuantityRange:
		return q.max
	default:
		if q.n < 1 {
			return 1
		}
		return q.n
	}
}

func (q Quantity) String() string {
	if q.kind == QuantityRange {
		return fmt.Sprintf("%d-%d", q.min, q.max)
	}
	return fmt.Sprintf("%d", q.Resolve())
}
