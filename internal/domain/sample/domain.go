package sample

import "time"

// Sample is one connectivity probe outcome. Immutable once created.
type Sample struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"ts"`
	Up        bool      `json:"is_up"`
	LatencyMS float64   `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
}
