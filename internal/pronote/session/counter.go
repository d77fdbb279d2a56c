package session

import "sync/atomic"

// Counter hands out request order numbers: 1, 2, 3, ... Safe for concurrent use.
// Values are unique; the order the server sees them in depends on the caller.
type Counter struct {
	n atomic.Int64
}

// Next spends and returns the next order number.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Last returns the most recently spent order number, 0 if none.
func (c *Counter) Last() int64 {
	return c.n.Load()
}
