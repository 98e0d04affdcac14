package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func retryOnlyConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig())
	errFlaky := errors.New("flaky")

	attempts := 0
	err := exec.Execute(context.Background(), "lookup", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errFlaky), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteStopsOnPermanentError(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig())
	errPermanent := errors.New("permanent")

	attempts := 0
	err := exec.Execute(context.Background(), "lookup", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected single attempt, got %d", attempts)
	}
}

func TestExecuteOpensBreaker(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errDown := errors.New("down")
	recordAll := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		if err := exec.Execute(context.Background(), "lookup", func(context.Context) error {
			return errDown
		}, recordAll); !errors.Is(err, errDown) {
			t.Fatalf("attempt %d: expected collaborator error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "lookup", func(context.Context) error {
		t.Fatal("operation must not run while circuit is open")
		return nil
	}, recordAll)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}
