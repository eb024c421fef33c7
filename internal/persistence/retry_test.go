package persistence

import (
	"errors"
	"testing"
)

func TestIsTransientSQLiteErr(t *testing.T) {
	transient := []string{
		"database is locked (5) (SQLITE_BUSY)",
		"database table is locked",
		"SQLITE_LOCKED",
		"commit transaction: busy (5)",
		"step: table locked (6)",
	}
	for _, msg := range transient {
		if !isTransientSQLiteErr(errors.New(msg)) {
			t.Errorf("%q should be transient", msg)
		}
	}
	permanent := []string{
		"UNIQUE constraint failed: snapshots.astro_day",
		// A bare code mid-message is not the driver's busy rendering.
		"cannot parse value (5) in column effects",
		"expected (6) fields in header",
	}
	for _, msg := range permanent {
		if isTransientSQLiteErr(errors.New(msg)) {
			t.Errorf("%q should not be transient", msg)
		}
	}
	if isTransientSQLiteErr(nil) {
		t.Error("nil is not an error")
	}
}

func TestRetryWrite_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := retryWrite(func() error {
		calls++
		return errors.New("UNIQUE constraint failed")
	})
	if err == nil {
		t.Fatal("permanent error should surface")
	}
	if calls != 1 {
		t.Fatalf("permanent error retried %d times", calls)
	}
}

func TestRetryWrite_RetriesTransient(t *testing.T) {
	calls := 0
	err := retryWrite(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryWrite: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryWrite_GivesUp(t *testing.T) {
	calls := 0
	err := retryWrite(func() error {
		calls++
		return errors.New("database is locked")
	})
	if err == nil {
		t.Fatal("exhausted retries should surface the error")
	}
	if calls != defaultRetryConfig.maxRetries+1 {
		t.Fatalf("expected %d attempts, got %d", defaultRetryConfig.maxRetries+1, calls)
	}
}

func TestBackoffDelay_Capped(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(attempt)
		if d > defaultRetryConfig.maxDelay+defaultRetryConfig.baseDelay {
			t.Fatalf("attempt %d: delay %v exceeds cap plus jitter", attempt, d)
		}
	}
}
