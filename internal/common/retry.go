package common

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultRetryAttempts is the fixed attempt ceiling for network-bound
// git and API operations
const DefaultRetryAttempts = 3

// DefaultRetryBase is the initial backoff delay; it doubles per attempt
const DefaultRetryBase = 2 * time.Second

// Retry runs fn up to attempts times with exponential backoff between
// failures. The last error is returned when every attempt fails.
func Retry(ctx context.Context, attempts int, base time.Duration, op string, fn func() error) error {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	if base <= 0 {
		base = DefaultRetryBase
	}

	var lastErr error
	delay := base
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}

// GenerateRunID generates a 16-character hex identifier for one
// orchestration run
func GenerateRunID() string {
	u := uuid.New()
	hexStr := strings.ReplaceAll(u.String(), "-", "")
	return hexStr[:16]
}

// FormatNumbers renders PR numbers as "#1, #2, #3"
func FormatNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, number := range numbers {
		parts[i] = fmt.Sprintf("#%d", number)
	}
	return strings.Join(parts, ", ")
}
