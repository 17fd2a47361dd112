package task

import (
	"math"
	"time"
)

// Backoff computes the delay before a retry attempt
type Backoff interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	Delay(attempt int) time.Duration
}

// Power raises the base, in seconds, to the attempt number.
// With a 60s base the delays are 60s, 3600s, 216000s, ...
type Power struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns Base.Seconds()^attempt seconds, capped at Max
func (p Power) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	secs := math.Pow(p.Base.Seconds(), float64(attempt))
	if secs > float64(math.MaxInt64)/float64(time.Second) {
		if p.Max > 0 {
			return p.Max
		}
		return time.Duration(math.MaxInt64)
	}
	d := time.Duration(secs * float64(time.Second))
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Constant always waits the same interval
type Constant struct {
	Interval time.Duration
}

// Delay returns the fixed interval
func (c Constant) Delay(int) time.Duration {
	return c.Interval
}
