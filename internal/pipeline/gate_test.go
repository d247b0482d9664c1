package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestApprovalGate_FirstResolveWins(t *testing.T) {
	g := newApprovalGate()
	g.Resolve(true)
	g.Resolve(false) // no-op

	if !g.Wait(context.Background()) {
		t.Error("expected the first resolution (approved) to win")
	}
}

func TestApprovalGate_RejectWins(t *testing.T) {
	g := newApprovalGate()
	g.Resolve(false)
	g.Resolve(true)

	if g.Wait(context.Background()) {
		t.Error("expected the first resolution (rejected) to win")
	}
}

func TestApprovalGate_ContextCancellation(t *testing.T) {
	g := newApprovalGate()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		done <- g.Wait(ctx)
	}()
	cancel()

	select {
	case approved := <-done:
		if approved {
			t.Error("cancellation must count as not approved")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestApprovalGate_ResolveUnblocksWaiter(t *testing.T) {
	g := newApprovalGate()

	done := make(chan bool, 1)
	go func() {
		done <- g.Wait(context.Background())
	}()
	g.Resolve(true)

	select {
	case approved := <-done:
		if !approved {
			t.Error("expected approval to propagate to the waiter")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Resolve")
	}
}
