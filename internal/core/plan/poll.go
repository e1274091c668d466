package plan

import "time"

// =============================================================================
// Readiness Poll Policy
// =============================================================================

// PollPolicy describes a bounded readiness poll. The zero multiplier and
// zero max interval degrade to a fixed-interval poll, which matches the
// classic 30 × 1s service wait.
type PollPolicy struct {
	// MaxAttempts is the number of checks before giving up.
	MaxAttempts int

	// Interval is the delay after the first failed attempt.
	Interval time.Duration

	// Multiplier grows the delay between attempts. Values <= 1 keep the
	// interval fixed.
	Multiplier float64

	// MaxInterval caps the grown delay. Zero means uncapped.
	MaxInterval time.Duration
}

// DefaultPollPolicy returns the fixed 30 × 1s poll.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts: 30,
		Interval:    time.Second,
	}
}

// Delay returns the wait before the given attempt (1-based). The first
// attempt has no delay; attempt n waits Interval * Multiplier^(n-2),
// capped at MaxInterval.
func (p PollPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	d := p.Interval
	if p.Multiplier > 1 {
		for i := 2; i < attempt; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
			if p.MaxInterval > 0 && d >= p.MaxInterval {
				return p.MaxInterval
			}
		}
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		return p.MaxInterval
	}
	return d
}

// Attempts returns MaxAttempts, defaulting to 1 for non-positive values so
// a zero policy still checks once.
func (p PollPolicy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}
