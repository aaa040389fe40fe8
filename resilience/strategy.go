// Package resilience defines the strategy contract every fault-handling
// policy in this module implements, and the pipeline that composes them.
package resilience

import (
	"context"

	"github.com/nadzya/resiliencecore/execctx"
)

// Callback is a user operation wrapped by a Strategy. A strategy invokes
// it at most once per ExecuteCore call.
type Callback[R any] func(ctx context.Context, ectx *execctx.Context) (R, error)

// Strategy is a pluggable behavior that wraps a Callback. Implementations
// may replace ectx's cancellation signal before invoking the callback,
// provided they restore the prior signal on every exit path, and may
// append resilience events to ectx.
type Strategy[R any] interface {
	ExecuteCore(ctx context.Context, ectx *execctx.Context, callback Callback[R]) (R, error)
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc[R any] func(ctx context.Context, ectx *execctx.Context, callback Callback[R]) (R, error)

// ExecuteCore calls f.
func (f StrategyFunc[R]) ExecuteCore(ctx context.Context, ectx *execctx.Context, callback Callback[R]) (R, error) {
	return f(ctx, ectx, callback)
}
