package transport

import (
	"math"
	"time"
)

// RetryPolicy bounds the attempts and delays of the request executor.
type RetryPolicy struct {
	MaxAttempts int           `json:"maxAttempts" yaml:"maxAttempts" validate:"min=1"`
	BaseDelay   time.Duration `json:"baseDelay" yaml:"baseDelay" validate:"min=0"`
	MaxDelay    time.Duration `json:"maxDelay" yaml:"maxDelay" validate:"min=0"`
}

// DefaultRetryPolicy allows five attempts, starting at 50ms and doubling up to 500ms.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   50 * time.Millisecond,
	MaxDelay:    500 * time.Millisecond,
}

// Delay returns how long to wait after the given failed attempt (1-based).
// Attempt 1 waits BaseDelay, each further attempt doubles it, and the result
// never exceeds MaxDelay. Attempts below 1 are treated as 1.
func Delay(attempt int, policy RetryPolicy) time.Duration {
	if policy.BaseDelay <= 0 {
		return 0
	}

	delay := policy.BaseDelay
	for i := 1; i < attempt; i++ {
		if policy.MaxDelay > 0 && delay >= policy.MaxDelay {
			break
		}
		// saturate instead of overflowing when MaxDelay is unset
		if delay >= time.Duration(math.MaxInt64/2) {
			delay = time.Duration(math.MaxInt64)

			break
		}
		delay *= 2
	}

	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		return policy.MaxDelay
	}

	return delay
}
