package cryptoprim

import "errors"

// ErrDivideByZero is returned by FloorDiv and FloorMod for a zero divisor.
var ErrDivideByZero = errors.New("division by zero")

// EGCD returns g = gcd(a, b) and Bézout coefficients x, y with a*x + b*y = g.
func EGCD(a, b int64) (g, x, y int64) {
	if b == 0 {
		if a < 0 {
			return -a, -1, 0
		}
		return a, 1, 0
	}
	g, x1, y1 := EGCD(b, floorMod(a, b))
	return g, y1, x1 - floorDiv(a, b)*y1
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return floorDiv(a, b), nil
}

// FloorMod returns the remainder with the sign of the divisor.
func FloorMod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return floorMod(a, b), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
