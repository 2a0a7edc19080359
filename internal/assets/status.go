package assets

import "time"

// Phase is the state of a load in the retry state machine
type Phase string

const (
	// PhaseIdle means the asset was never requested
	PhaseIdle Phase = "Idle"

	// PhaseAttempting means an attempt is running or waiting for its backoff
	PhaseAttempting Phase = "Attempting"

	// PhaseSucceeded means the last load delivered a decoded asset
	PhaseSucceeded Phase = "Succeeded"

	// PhaseExhausted means every allowed attempt failed
	PhaseExhausted Phase = "Exhausted"

	// PhaseFailed means the load failed without retrying, e.g. an unknown asset type
	PhaseFailed Phase = "Failed"
)

// Status is the observable state of the most recent load of an asset
type Status struct {
	Phase Phase `yaml:"phase"`

	// Attempt is the 1-based number of the current or last attempt
	Attempt int `yaml:"attempt,omitempty"`

	// Message holds the last error, if any
	Message string `yaml:"message,omitempty"`

	// LastAttempt is the start time of the most recent attempt
	LastAttempt *time.Time `yaml:"lastAttempt,omitempty"`
}

// Terminal reports whether the load finished
func (s Status) Terminal() bool {
	switch s.Phase {
	case PhaseSucceeded, PhaseExhausted, PhaseFailed:
		return true
	}
	return false
}
