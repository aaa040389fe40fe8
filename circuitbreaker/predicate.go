package circuitbreaker

import (
	"context"

	"github.com/nadzya/resiliencecore/outcome"
)

// PredicateArgs carries the call context alongside the outcome passed to a
// ShouldHandle predicate.
type PredicateArgs struct {
	Context context.Context
}

// Predicate decides whether an outcome counts as a handled failure against
// a breaker. It is applied to every outcome, success or failure alike, so
// a caller can mark a successful-but-unacceptable result as a failure that
// should trip the breaker, or mark an error as one the breaker should
// ignore entirely.
type Predicate[R any] func(outcome.Outcome[R], PredicateArgs) bool
