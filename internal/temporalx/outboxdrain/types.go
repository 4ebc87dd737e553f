package outboxdrain

import "time"

const (
	WorkflowName  = "outbox_drain"
	WorkflowID    = "dineops-outbox-drain"
	ActivityDrain = "outbox_drain_batch"
)

type DrainInput struct {
	Batch        int           `json:"batch"`
	IdleInterval time.Duration `json:"idle_interval"`
	// MaxTicks bounds one run before it continues as new; 0 uses the default.
	MaxTicks         int `json:"max_ticks,omitempty"`
	ActivityAttempts int `json:"activity_attempts,omitempty"`
}

type DrainResult struct {
	Processed int `json:"processed"`
}

func (in DrainInput) withDefaults() DrainInput {
	if in.Batch <= 0 {
		in.Batch = 50
	}
	if in.IdleInterval <= 0 {
		in.IdleInterval = 2 * time.Second
	}
	if in.MaxTicks <= 0 {
		in.MaxTicks = 1000
	}
	if in.ActivityAttempts <= 0 {
		in.ActivityAttempts = 3
	}
	return in
}
