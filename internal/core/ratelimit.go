package core

import "time"

// LimiterStatus is a point-in-time view of the client-side call window.
type LimiterStatus struct {
	MaxCalls      int           `json:"max_calls"`
	Period        time.Duration `json:"-"`
	PeriodSeconds float64       `json:"period_seconds"`
	InWindow      int           `json:"in_window"`
	Permitted     bool          `json:"permitted"`
	Wait          time.Duration `json:"-"`
	WaitSeconds   float64       `json:"wait_seconds"`
}
