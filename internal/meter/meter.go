// Package meter implements the page-usage admission decision.
package meter

import (
	"fmt"
	"math"
)

// Unlimited is the sentinel limit used when no limit row exists for a
// tenant key.
const Unlimited = int64(math.MaxInt64)

// QuotaExceededError reports a rejected admission together with the values
// that produced the decision.
type QuotaExceededError struct {
	Current     int64
	Prospective int64
	Limit       int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("adding a task with %d pages would exceed the usage limit of %d pages (current usage %d)",
		e.Prospective, e.Limit, e.Current)
}

// Decide evaluates whether a prospective page count keeps accumulated usage
// within the limit. The boundary is inclusive: current+prospective == limit
// admits. A prospective count of zero never changes the decision.
//
// The decision is only advisory unless evaluated against state the caller
// holds a lock on; the task recorder re-runs it inside its transaction.
func Decide(current, prospective, limit int64) error {
	if prospective <= limit-current {
		return nil
	}
	return &QuotaExceededError{Current: current, Prospective: prospective, Limit: limit}
}
