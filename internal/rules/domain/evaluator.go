package rules

import "math"

// equalityEpsilon tolerates floating noise on == and != comparisons.
const equalityEpsilon = 1e-9

// Matches reports whether a sample value crosses a rule threshold. It is a
// total function: an unrecognized operator never matches.
func Matches(op Operator, value, threshold float64) bool {
	switch op {
	case OperatorGreater:
		return value > threshold
	case OperatorGreaterOrEqual:
		return value >= threshold
	case OperatorLess:
		return value < threshold
	case OperatorLessOrEqual:
		return value <= threshold
	case OperatorEqual:
		return math.Abs(value-threshold) < equalityEpsilon
	case OperatorNotEqual:
		return math.Abs(value-threshold) >= equalityEpsilon
	default:
		return false
	}
}
