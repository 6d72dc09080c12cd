package points

import "fmt"

// MaxPointsPerValidRep caps a session's total: a 10 points/rep baseline times a
// 10x ceiling on any reasonable multiplier stack.
const MaxPointsPerValidRep = 100

// Validation reports whether a Result is acceptable and, if not, why.
type Validation struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason,omitempty"`
}

// Validate applies the anti-exploit checks to a calculation result.
func Validate(result Result, validReps int) Validation {
	switch {
	case result.TotalPoints < 0:
		return Validation{Reason: fmt.Sprintf("total points cannot be negative (got %d)", result.TotalPoints)}
	case result.BasePoints < 0:
		return Validation{Reason: fmt.Sprintf("base points cannot be negative (got %d)", result.BasePoints)}
	case result.BonusPoints < 0:
		return Validation{Reason: fmt.Sprintf("bonus points cannot be negative (got %d)", result.BonusPoints)}
	}

	if ceiling := validReps * MaxPointsPerValidRep; result.TotalPoints > ceiling {
		return Validation{Reason: fmt.Sprintf("total points %d exceed maximum of %d for %d valid reps", result.TotalPoints, ceiling, validReps)}
	}
	return Validation{IsValid: true}
}
