// Package execctx implements the per-call execution context that carries
// cancellation, result-type metadata, user properties and emitted
// resilience events through a strategy pipeline. Contexts are pooled to
// avoid an allocation on every pipeline execution.
package execctx

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// ErrInvalidArgument is returned by Release when passed a nil context.
var ErrInvalidArgument = errors.New("execctx: invalid argument")

// Void is the sentinel result type for callbacks that produce no value.
// Initialize[Void](ctx, sync) marks the context as carrying a void result.
type Void struct{}

var voidType = reflect.TypeOf(Void{})

// ResilienceEvent records that a strategy reported a named event during
// the current execution. Equality is by name.
type ResilienceEvent struct {
	Name string
}

// Context is the per-call carrier strategies mutate as they wrap a
// callback. It is acquired from Acquire and must be returned via Release
// once the top-level pipeline execution completes.
type Context struct {
	mu sync.Mutex

	cancellation              context.Context
	isSynchronous             bool
	continueOnCapturedContext bool
	resultType                reflect.Type
	isVoid                    bool
	isInitialized             bool
	props                     map[string]any
	events                    []ResilienceEvent
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

// Acquire returns a Context from the process-wide pool. A freshly
// constructed or freshly released Context always satisfies the default
// predicate: uninitialized, no cancellation, empty properties and events,
// synchronous=false.
func Acquire() *Context {
	return pool.Get().(*Context)
}

// Release resets ctx to its default state and returns it to the pool. A
// subsequent Acquire may return this same instance. Releasing a nil
// context is an error.
func Release(ctx *Context) error {
	if ctx == nil {
		return ErrInvalidArgument
	}
	ctx.reset()
	pool.Put(ctx)
	return nil
}

func (c *Context) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancellation = nil
	c.isSynchronous = false
	c.continueOnCapturedContext = false
	c.resultType = nil
	c.isVoid = false
	c.isInitialized = false
	c.props = nil
	c.events = nil
}

// Initialize marks ctx as carrying a result of type T for the given
// execution mode. Go does not allow methods to introduce their own type
// parameters, so this is a package-level function rather than a method.
func Initialize[T any](ctx *Context, isSynchronous bool) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	t := reflect.TypeOf((*T)(nil)).Elem()
	ctx.resultType = t
	ctx.isVoid = t == voidType
	ctx.isInitialized = true
	ctx.isSynchronous = isSynchronous
}

// IsInitialized reports whether Initialize has been called since the last
// Acquire/Release cycle.
func (c *Context) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isInitialized
}

// ResultType returns the type tag set by Initialize, or nil (UnknownResult)
// if the context has not been initialized.
func (c *Context) ResultType() reflect.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultType
}

// IsVoid reports whether the initialized result type is Void.
func (c *Context) IsVoid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isVoid
}

// IsSynchronous reports whether the current execution runs in synchronous
// mode, where every suspension point must complete inline.
func (c *Context) IsSynchronous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSynchronous
}

// ContinueOnCapturedContext reports whether continuations should resume on
// a captured host scheduling context. There is no such context in a plain
// Go build, so this is always false unless a caller explicitly opts in via
// SetContinueOnCapturedContext.
func (c *Context) ContinueOnCapturedContext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.continueOnCapturedContext
}

// SetContinueOnCapturedContext sets the flag returned by
// ContinueOnCapturedContext.
func (c *Context) SetContinueOnCapturedContext(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.continueOnCapturedContext = v
}

// Cancellation returns the current cancellation signal. A Context with no
// cancellation set behaves as context.Background().
func (c *Context) Cancellation() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancellation == nil {
		return context.Background()
	}
	return c.cancellation
}

// SetCancellation replaces the cancellation signal. Strategies that do
// this must restore the prior signal on every exit path.
func (c *Context) SetCancellation(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancellation = ctx
}

// AddEvent appends a named resilience event to the execution's event log.
func (c *Context) AddEvent(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ResilienceEvent{Name: name})
}

// Events returns a snapshot of the resilience events reported so far.
func (c *Context) Events() []ResilienceEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ResilienceEvent, len(c.events))
	copy(out, c.events)
	return out
}

// IsHealthy reports whether no resilience events have been reported,
// which backs the strategy-execution-duration "execution-health" tag.
func (c *Context) IsHealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events) == 0
}
