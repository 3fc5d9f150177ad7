package crawler

import "context"

// Gate is a counting semaphore bounding simultaneous in-flight fetches
// of one kind. Every acquired slot must be released unconditionally,
// whatever the fetch's outcome.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate with n slots. A non-positive n means 1.
func NewGate(n int) *Gate {
	if n <= 0 {
		n = 1
	}
	return &Gate{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or the context is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees one slot.
func (g *Gate) Release() {
	<-g.slots
}

// InUse returns the number of slots currently held.
func (g *Gate) InUse() int {
	return len(g.slots)
}
