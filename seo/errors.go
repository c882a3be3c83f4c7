package seo

import (
	"errors"
	"fmt"
)

// BudgetExhaustedError reports that refinement ran out of iterations (or
// stopped improving) before the composite score reached its target. The
// accompanying result still carries the best-scoring revision.
type BudgetExhaustedError struct {
	Best       int
	Target     int
	Iterations int
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("score %d below target %d after %d refinement iterations", e.Best, e.Target, e.Iterations)
}

// IsBudgetExhausted reports whether err is a BudgetExhaustedError.
func IsBudgetExhausted(err error) bool {
	var be *BudgetExhaustedError
	return errors.As(err, &be)
}
