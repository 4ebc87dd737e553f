package jobs

import "time"

// Policy bounds how the outbox is drained.
type Policy struct {
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		RetryDelay:   30 * time.Second,
		StaleRunning: 5 * time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = d.RetryDelay
	}
	if p.StaleRunning <= 0 {
		p.StaleRunning = d.StaleRunning
	}
	return p
}
