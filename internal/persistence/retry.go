// retry.go wraps write operations with automatic retries for transient
// SQLite errors. The busy_timeout pragma handles SQLITE_BUSY at the
// connection level, but concurrent branch runs against one WAL file can
// still surface SQLITE_LOCKED and short-read errors that resolve on retry.
package persistence

import (
	"math/rand"
	"strings"
	"time"
)

type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// retryWrite executes fn, retrying with exponential backoff and jitter on
// transient SQLite errors. Non-transient errors return immediately.
func retryWrite(fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= defaultRetryConfig.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransientSQLiteErr(lastErr) {
			return lastErr
		}
		if attempt < defaultRetryConfig.maxRetries {
			time.Sleep(backoffDelay(attempt))
		}
	}
	return lastErr
}

// isTransientSQLiteErr matches the transient error shapes produced by
// modernc.org/sqlite under WAL contention. Bare numeric codes only count
// when they terminate the message, the way the driver renders them; a
// "(5)" buried mid-sentence is not a busy error.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"database is locked",
		"database table is locked",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return strings.HasSuffix(msg, "(5)") || strings.HasSuffix(msg, "(6)")
}

func backoffDelay(attempt int) time.Duration {
	delay := defaultRetryConfig.baseDelay << uint(attempt)
	if delay > defaultRetryConfig.maxDelay {
		delay = defaultRetryConfig.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(defaultRetryConfig.baseDelay)))
	return delay + jitter
}
