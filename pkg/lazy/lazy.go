// Package lazy implements a one-shot memoization cell.
package lazy

import "sync"

// Cell memoizes the result of an expensive computation.
//
// The first successful Get stores the computed value forever; every
// later Get returns the stored value without running the computation
// again. Concurrent first-time callers block until the single
// in-flight computation finishes and then all observe the same
// completed result; a partially constructed value is never visible.
//
// A failed computation does not consume the cell: the error is
// returned to the caller and a later Get may retry. Callers that need
// "compute at most once even on failure" must wrap their computation
// so that it reports failure through the value instead of the error.
//
// The zero value is ready to use. Get must not be re-entered from
// inside its own compute function.
type Cell struct {
	mu   sync.Mutex
	done bool
	val  interface{}
}

// Get returns the memoized value, running compute to produce it if no
// previous call succeeded.
func (c *Cell) Get(compute func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return c.val, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.val = v
	c.done = true
	return v, nil
}

// Done reports whether a value has been memoized.
func (c *Cell) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
