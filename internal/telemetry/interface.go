package telemetry

import (
	"context"
	"time"
)

// Collector records fan control snapshots.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Snapshot is one fan control decision: the temperature that drove it
// and the duty cycle that came out of it.
type Snapshot struct {
	Timestamp    time.Time
	Temperature  float64
	ComputedDuty float64
	AppliedDuty  float64
	FanEnabled   bool
}
