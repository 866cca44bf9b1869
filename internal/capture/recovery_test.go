package capture

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	cfg := RecoveryConfig{
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 1 * time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 5, want: 16 * time.Second},
		{attempt: 6, want: 30 * time.Second}, // capped
		{attempt: 10, want: 30 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffDelay(tt.attempt, cfg); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRunWithRecovery_SucceedsAfterRetries(t *testing.T) {
	cfg := RecoveryConfig{
		MaxRetries:    5,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 10 * time.Millisecond,
	}
	state := &RecoveryState{}

	attempts := 0
	err := RunWithRecovery(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("node gone")
		}
		return nil
	}, cfg, state)

	if err != nil {
		t.Fatalf("RunWithRecovery() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if got := state.Reconnects.Load(); got != 2 {
		t.Errorf("Reconnects = %d, want 2", got)
	}
	if state.CurrentRetries != 0 {
		t.Errorf("CurrentRetries = %d, want 0 after success", state.CurrentRetries)
	}
}

func TestRunWithRecovery_GivesUpAfterBudget(t *testing.T) {
	cfg := RecoveryConfig{
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: time.Millisecond,
	}
	state := &RecoveryState{}

	attempts := 0
	err := RunWithRecovery(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("still broken")
	}, cfg, state)

	if err == nil {
		t.Fatal("RunWithRecovery() succeeded, want exhaustion error")
	}
	if attempts != 3 { // initial attempt + 2 retries
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRunWithRecovery_RespectsCancellation(t *testing.T) {
	cfg := RecoveryConfig{
		MaxRetries:    100,
		RetryDelay:    time.Hour,
		MaxRetryDelay: time.Hour,
	}
	state := &RecoveryState{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunWithRecovery(ctx, func(context.Context) error {
			return errors.New("fail")
		}, cfg, state)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithRecovery() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunWithRecovery() did not return after cancellation")
	}
}
