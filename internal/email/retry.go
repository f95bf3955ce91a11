package email

import (
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts is the default number of delivery attempts.
	DefaultMaxAttempts = 3

	// DefaultRetryBackoff is the delay before the second attempt.
	DefaultRetryBackoff = 500 * time.Millisecond

	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2
)

// retryDelay doubles base per failed attempt and applies ±20% jitter.
// attempt is 1-indexed: the delay after the first failure is base.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base << (attempt - 1)
	jitter := (rand.Float64()*2 - 1) * float64(d) * JitterFactor
	return time.Duration(float64(d) + jitter)
}
