package chain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryReturnsLastError(t *testing.T) {
	calls := 0
	want := errors.New("down")
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryDoesNotRetryPermanent(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return permanent{errors.New("not found")}
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
