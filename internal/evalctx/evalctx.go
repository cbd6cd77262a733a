// SPDX-License-Identifier: AGPL-3.0-or-later

// Package evalctx guards lazy value evaluation against reentrancy. A
// Context tracks which values are currently being evaluated so that a
// value whose computation reaches back to itself fails with the cycle
// instead of recursing forever.
//
// A Context is an explicit object owned by one evaluating goroutine;
// there is no ambient global state. Enter/exit are paired on every
// path, including failure.
package evalctx

// Context tracks the values currently being evaluated.
type Context struct {
	inScope map[any]struct{}
	stack   []any
}

// New returns an empty evaluation context.
func New() *Context {
	return &Context{inScope: make(map[any]struct{})}
}

// CircularEvaluationError reports that evaluating a value required
// evaluating itself. Cycle lists the chain of owners from the first
// evaluation to the repeated one, inclusive.
type CircularEvaluationError struct {
	Cycle []any
}

func (e *CircularEvaluationError) Error() string {
	msg := "circular evaluation detected:"
	for _, owner := range e.Cycle {
		msg += "\n -> " + ownerLabel(owner)
	}
	return msg
}

func ownerLabel(owner any) string {
	if s, ok := owner.(interface{ String() string }); ok {
		return s.String()
	}
	if s, ok := owner.(string); ok {
		return s
	}
	return "<anonymous value>"
}

// Evaluate runs fn with owner marked as evaluating. If owner is
// already evaluating in this context, a CircularEvaluationError
// carrying the cycle is returned and fn never runs.
func Evaluate[T any](c *Context, owner any, fn func() (T, error)) (T, error) {
	var zero T
	if _, evaluating := c.inScope[owner]; evaluating {
		return zero, c.cycleError(owner)
	}
	c.enter(owner)
	defer c.exit(owner)
	return fn()
}

// TryEvaluate behaves like Evaluate but yields fallback instead of an
// error when owner is already evaluating.
func TryEvaluate[T any](c *Context, owner any, fallback T, fn func() (T, error)) (T, error) {
	if _, evaluating := c.inScope[owner]; evaluating {
		return fallback, nil
	}
	return Evaluate(c, owner, fn)
}

// EvaluateNested runs fn in a fresh nested scope that is allowed to
// re-enter values being evaluated in the enclosing scope. Use
// sparingly; most callers should restructure instead.
func EvaluateNested[T any](c *Context, fn func() (T, error)) (T, error) {
	savedScope, savedStack := c.inScope, c.stack
	c.inScope = make(map[any]struct{})
	c.stack = nil
	defer func() {
		c.inScope = savedScope
		c.stack = savedStack
	}()
	return fn()
}

func (c *Context) enter(owner any) {
	c.inScope[owner] = struct{}{}
	c.stack = append(c.stack, owner)
}

func (c *Context) exit(owner any) {
	delete(c.inScope, owner)
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *Context) cycleError(owner any) *CircularEvaluationError {
	start := 0
	for i, o := range c.stack {
		if o == owner {
			start = i
			break
		}
	}
	cycle := append([]any{}, c.stack[start:]...)
	cycle = append(cycle, owner)
	return &CircularEvaluationError{Cycle: cycle}
}
