package power

import "time"

// Reading is one published moving average.
type Reading struct {
	Name  string    `json:"name,omitempty"`
	Power int       `json:"power"`
	Time  time.Time `json:"time"`
	Seq   uint64    `json:"seq"`
}

// Thresholds are handed to the policy framework once at install.
type Thresholds struct {
	TotalCapacity int `json:"totalCapacity"`
	AlertLevel    int `json:"alertLevel"`
}

const (
	DefaultTotalCapacity = 1260
	DefaultAlertLevel    = 1110
)
