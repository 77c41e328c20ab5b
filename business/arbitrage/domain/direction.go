// Package domain contains the core domain types for the arbitrage context.
package domain

// Direction is the side of a pool trade relative to its token pair.
type Direction string

const (
	// DirectionAToB sells token A for token B.
	DirectionAToB Direction = "A_TO_B"

	// DirectionBToA sells token B for token A.
	DirectionBToA Direction = "B_TO_A"
)

// String returns a short human-readable description of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionAToB:
		return "A → B"
	case DirectionBToA:
		return "B → A"
	default:
		return "Unknown"
	}
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == DirectionAToB {
		return DirectionBToA
	}
	return DirectionAToB
}

// Directions lists both trade directions in evaluation order.
func Directions() []Direction {
	return []Direction{DirectionAToB, DirectionBToA}
}
