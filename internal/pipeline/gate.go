package pipeline

import (
	"context"
	"sync"
)

// approvalGate is the pending-decision object for the plan approval
// suspension point. It is resolved exactly once: by the caller's approval
// callback, by Stop, or by context cancellation. Resolving an already
// resolved gate is a no-op, which lets Stop race the callback safely.
type approvalGate struct {
	once sync.Once
	ch   chan bool
}

func newApprovalGate() *approvalGate {
	return &approvalGate{ch: make(chan bool, 1)}
}

// Resolve supplies the approval decision. Only the first call wins.
func (g *approvalGate) Resolve(approved bool) {
	g.once.Do(func() {
		g.ch <- approved
	})
}

// Wait blocks until the gate is resolved or ctx is canceled.
// Cancellation counts as not approved.
func (g *approvalGate) Wait(ctx context.Context) bool {
	select {
	case approved := <-g.ch:
		return approved
	case <-ctx.Done():
		return false
	}
}
