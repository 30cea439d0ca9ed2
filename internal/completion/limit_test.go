package completion

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type countingRequester struct {
	calls atomic.Int32
}

func (c *countingRequester) Request(context.Context, string) (string, error) {
	c.calls.Add(1)
	return "ok", nil
}

func TestNewLimitedDisabledReturnsNext(t *testing.T) {
	next := &countingRequester{}
	if got := NewLimited(next, 0, 1); got != Requester(next) {
		t.Fatalf("expected passthrough, got %T", got)
	}
}

func TestLimitedHonorsBurstThenWaits(t *testing.T) {
	next := &countingRequester{}
	r := NewLimited(next, 1, 2)
	for i := 0; i < 2; i++ {
		if _, err := r.Request(context.Background(), "p"); err != nil {
			t.Fatalf("burst request %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Request(ctx, "p")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed once the bucket is empty, got %v", err)
	}
	if IsTransient(err) {
		t.Fatal("cancelled wait should not be transient")
	}
	if n := next.calls.Load(); n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", n)
	}
}
