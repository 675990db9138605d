package summarize

import "context"

// Gate bounds the number of concurrent external summarization calls.
// Deployments may run several workers against the same store; each process
// constructs one Gate and passes it by reference into its Client, so the
// per-process external-call concurrency is always capped. There is no
// package-level instance.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate with the given number of slots. Limits below 1
// are raised to 1.
func NewGate(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot frees or the context is cancelled.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	<-g.slots
}

// Limit returns the configured slot count.
func (g *Gate) Limit() int {
	return cap(g.slots)
}

// InUse returns the number of currently held slots.
func (g *Gate) InUse() int {
	return len(g.slots)
}
