package jobs

import (
	"testing"
	"time"
)

func TestNextAttemptDelay_GrowsWithAttempt(t *testing.T) {
	d0 := nextAttemptDelay(0, 500)
	d3 := nextAttemptDelay(3, 500)
	if d3 <= d0 {
		t.Errorf("expected delay to grow with attempt number, got d0=%v d3=%v", d0, d3)
	}
}

func TestNextAttemptDelay_NeverExceedsMaxInterval(t *testing.T) {
	d := nextAttemptDelay(50, 500)
	if d > 5*time.Minute {
		t.Errorf("expected delay capped at 5m, got %v", d)
	}
}
