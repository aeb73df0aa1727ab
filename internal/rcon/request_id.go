package rcon

import (
	"math"
	"sync"
)

// RequestIDProvider hands out per-client request ids. The counter starts at
// the lowest 32-bit signed value and wraps by intent; -1 is reserved by the
// protocol for the invalid-password signal and is never allocated.
type RequestIDProvider struct {
	mu      sync.Mutex
	counter int32
}

// NewRequestIDProvider returns a provider starting at math.MinInt32.
func NewRequestIDProvider() *RequestIDProvider {
	return &RequestIDProvider{counter: math.MinInt32}
}

// Next allocates the next request id.
func (p *RequestIDProvider) Next() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter++
	if p.counter == -1 {
		p.counter++
	}
	return p.counter
}
