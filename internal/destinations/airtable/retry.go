package airtable

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	air "github.com/mehanizm/airtable"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/logger"
)

// maxAttempts bounds retries on rate-limited requests. Anything else
// fails immediately and retries on the next pass.
const maxAttempts = 3

var retryAfterPattern = regexp.MustCompile(`(?i)retry[- ]?after[:\s]+(\d+)`)

// withRetry runs op, retrying up to maxAttempts times when the API
// reports rate limiting. The wait honours a Retry-After hint when the
// error carries one, otherwise backs off exponentially.
func (d *Destination) withRetry(ctx context.Context, op func() (*air.Records, error)) (*air.Records, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := retryDelay(lastErr, attempt)
			logger.Debug("Airtable rate limited, retrying in %s (attempt %d/%d)", delay, attempt, maxAttempts)
			if err := d.backoff(ctx, delay); err != nil {
				return nil, err
			}
		}

		records, err := op()
		if err == nil {
			return records, nil
		}
		if !isRateLimited(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, lastErr)
}

func sleepBackoff(ctx context.Context, delay time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// retryDelay prefers the server's Retry-After hint over the backoff
// schedule.
func retryDelay(err error, attempt int) time.Duration {
	if err != nil {
		if secs := retryAfterSeconds(err.Error()); secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<(attempt-2)) * time.Second
}

func retryAfterSeconds(msg string) int {
	m := retryAfterPattern.FindStringSubmatch(msg)
	if len(m) != 2 {
		return 0
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return secs
}

// The client surfaces HTTP failures as plain errors, so status detection
// falls back to message inspection.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToUpper(msg), "RATE_LIMIT")
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "404") || strings.Contains(strings.ToUpper(msg), "NOT_FOUND")
}
