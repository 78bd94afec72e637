package api

import "sync/atomic"

// RequestCounter is the process-wide diagnostics counter surfaced by /health
// and /stats. It is owned by main and reset on restart; handlers share one
// instance instead of ad hoc package statics.
type RequestCounter struct {
	n atomic.Int64
}

// NewRequestCounter returns a counter starting at zero.
func NewRequestCounter() *RequestCounter {
	return &RequestCounter{}
}

// Inc increments the counter and returns the new value.
func (c *RequestCounter) Inc() int64 {
	return c.n.Add(1)
}

// Total returns the current value.
func (c *RequestCounter) Total() int64 {
	return c.n.Load()
}

// Reset zeroes the counter.
func (c *RequestCounter) Reset() {
	c.n.Store(0)
}
