package hooks

import (
	"context"
	"errors"
	"testing"
)

func TestEnvelopeReturnsFnErrorUnchanged(t *testing.T) {
	h := Hooks{}
	want := errors.New("boom")
	got := h.Envelope(context.Background(), "g1", "create", "node", "Person", "p1", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(got, want) {
		t.Fatalf("expected envelope to return fn's error unchanged, got %v", got)
	}
}

func TestHookPanicIsSwallowed(t *testing.T) {
	h := Hooks{
		OnOperationStart: func(ctx context.Context, opctx OperationContext) {
			panic("hook exploded")
		},
	}
	err := h.Envelope(context.Background(), "g1", "create", "node", "Person", "p1", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("a panicking hook must not corrupt the operation outcome, got %v", err)
	}
}

func TestOnEndFiresEvenOnError(t *testing.T) {
	var sawEnd bool
	h := Hooks{
		OnOperationEnd: func(ctx context.Context, endctx EndContext) {
			sawEnd = true
			if endctx.Err == nil {
				t.Fatalf("expected endctx.Err to carry the failure")
			}
		},
	}
	_ = h.Envelope(context.Background(), "g1", "delete", "node", "Person", "p1", func(ctx context.Context) error {
		return errors.New("fail")
	})
	if !sawEnd {
		t.Fatalf("expected OnOperationEnd to fire")
	}
}

func TestCombineFiresAllSubscribers(t *testing.T) {
	var calls int
	a := Hooks{OnOperationStart: func(ctx context.Context, opctx OperationContext) { calls++ }}
	b := Hooks{OnOperationStart: func(ctx context.Context, opctx OperationContext) { calls++ }}
	combined := Combine(a, b)

	_ = combined.Envelope(context.Background(), "g1", "create", "node", "Person", "p1", func(ctx context.Context) error {
		return nil
	})
	if calls != 2 {
		t.Fatalf("expected both subscribers to fire, got %d calls", calls)
	}
}
