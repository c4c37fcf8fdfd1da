package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "xarchive/pkg/errors"
)

func TestFixedBackoff(t *testing.T) {
	backoff := &FixedBackoff{Delay: 250 * time.Millisecond}

	for attempt := 1; attempt <= 5; attempt++ {
		if delay := backoff.NextDelay(attempt); delay != 250*time.Millisecond {
			t.Errorf("Attempt %d: expected 250ms, got %v", attempt, delay)
		}
	}
	if delay := backoff.NextDelay(0); delay != 0 {
		t.Errorf("Expected zero delay for attempt 0, got %v", delay)
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond}, // capped
		{5, 500 * time.Millisecond},
	}
	for _, test := range tests {
		if delay := backoff.NextDelay(test.attempt); delay != test.expected {
			t.Errorf("Attempt %d: expected %v, got %v", test.attempt, test.expected, delay)
		}
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeNetwork, "flaky", 0)
		}
		return nil
	}

	err := Do(op, &Config{
		MaxAttempts: 5,
		Backoff:     &FixedBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	})
	if err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return errs.New(errs.ErrorTypeNetwork, "always down", 0)
	}

	err := Do(op, &Config{
		MaxAttempts: 3,
		Backoff:     &FixedBackoff{Delay: 0},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", attempts)
	}
}

func TestDoDoesNotRetryNonRetryableErrors(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return errs.New(errs.ErrorTypeAuth, "bad credentials", 401)
	}

	err := Do(op, &Config{
		MaxAttempts: 5,
		Backoff:     &FixedBackoff{Delay: 0},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Auth errors must not retry, got %d attempts", attempts)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	op := func() error {
		attempts++
		return errs.New(errs.ErrorTypeNetwork, "down", 0)
	}

	err := Do(op, &Config{
		MaxAttempts: 5,
		Backoff:     &FixedBackoff{Delay: time.Hour},
		RetryIf:     DefaultRetryIf,
		Context:     ctx,
	})
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestWait(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Zero delay should return immediately, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
