package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// RecoveryConfig bounds the exponential-backoff reconnect loop used when
// the session owner opts into automatic stream recovery.
type RecoveryConfig struct {
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// DefaultRecoveryConfig returns the default reconnect bounds.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		MaxRetries:    5,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// RecoveryState tracks reconnect attempts across stream failures.
type RecoveryState struct {
	CurrentRetries int
	Reconnects     atomic.Uint32
}

// ConnectFunc attempts to (re)establish the capture stream.
type ConnectFunc func(ctx context.Context) error

// RunWithRecovery runs connectFn, retrying with exponential backoff on
// failure. The retry counter resets on success so later failures get a
// fresh budget. Returns once connectFn succeeds, the retry budget is
// exhausted, or ctx is cancelled.
func RunWithRecovery(ctx context.Context, connectFn ConnectFunc, cfg RecoveryConfig, state *RecoveryState) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("screengrab: context cancelled, stopping recovery")
			return ctx.Err()
		default:
		}

		err := connectFn(ctx)
		if err == nil {
			state.CurrentRetries = 0
			slog.Info("screengrab: stream re-established")
			return nil
		}

		slog.Error("screengrab: stream recovery attempt failed", "error", err)

		state.CurrentRetries++
		state.Reconnects.Add(1)

		if state.CurrentRetries > cfg.MaxRetries {
			return fmt.Errorf("screengrab: recovery gave up after %d attempts", cfg.MaxRetries)
		}

		delay := backoffDelay(state.CurrentRetries, cfg)
		slog.Warn("screengrab: retrying stream",
			"attempt", state.CurrentRetries,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			slog.Info("screengrab: context cancelled during backoff")
			return ctx.Err()
		}
	}
}

// backoffDelay is retryDelay * 2^(attempt-1), capped at maxRetryDelay.
func backoffDelay(attempt int, cfg RecoveryConfig) time.Duration {
	delay := cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
