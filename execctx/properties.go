package execctx

// PropertyKey identifies a value of type T in a Context's properties bag.
// The type parameter is a phantom: it witnesses the type of value the key
// retrieves so callers never need a type assertion at the call site.
type PropertyKey[T any] struct {
	name string
}

// NewPropertyKey creates a typed property key. Keys are compared by name;
// callers are responsible for choosing names that do not collide across
// unrelated strategies.
func NewPropertyKey[T any](name string) PropertyKey[T] {
	return PropertyKey[T]{name: name}
}

// Name returns the key's identifying name.
func (k PropertyKey[T]) Name() string { return k.name }

// GetProperty retrieves the value stored under key. The bool result is
// false if no value was set, or if a value was set under the same name
// with a different type.
func GetProperty[T any](ctx *Context, key PropertyKey[T]) (T, bool) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	var zero T
	if ctx.props == nil {
		return zero, false
	}
	raw, ok := ctx.props[key.name]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// SetProperty stores val under key, overwriting any previous value.
func SetProperty[T any](ctx *Context, key PropertyKey[T], val T) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if ctx.props == nil {
		ctx.props = make(map[string]any)
	}
	ctx.props[key.name] = val
}
