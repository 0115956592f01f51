package jobs

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// nextAttemptDelay computes the exponential-with-jitter, capped backoff
// delay before a job's (attempt+1)th retry, reusing cenkalti/backoff's
// math (the same library inference/httpbridge.go retries HTTP calls
// with) instead of hand-rolling jittered exponential growth a second
// way in the same module.
func nextAttemptDelay(attempt int, baseMS int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(baseMS) * time.Millisecond
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	b.MaxInterval = 5 * time.Minute
	b.MaxElapsedTime = 0 // uncapped total; callers cap via max_attempts instead

	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = b.NextBackOff()
	}
	if d == backoff.Stop || d > b.MaxInterval {
		return b.MaxInterval
	}
	return d
}
