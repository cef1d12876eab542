// Package fan keeps the HAT fan's duty cycle matched to the measured
// temperature. The control loop polls every 100ms but recomputes the
// curve at most once per five seconds and only touches the PWM output
// when the value actually changes, to avoid audible chatter.
package fan

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/logger"
	"codeberg.org/mutker/pentactl/internal/metrics"
	"codeberg.org/mutker/pentactl/internal/telemetry"
)

const (
	tickInterval      = 100 * time.Millisecond
	recomputeInterval = 5 * time.Second

	// A true 0% duty makes some fans spin at full speed, so the
	// minimum emitted value is always above zero.
	disabledDuty = 0.1
	idleDuty     = 10.0

	linearMinDuty = 25.0
	linearMaxDuty = 100.0
)

// PWMWriter drives the fan output.
type PWMWriter interface {
	SetDutyCycle(percent float64) error
}

// TempPoller is the subset of the metrics temperature poller the fan
// controller needs: trigger a poll when the delay has elapsed and read
// the resulting average.
type TempPoller interface {
	Poll(force bool) []metrics.DiskTemp
	Average() float64
}

// Controller owns the fan state. It is driven from a single goroutine.
type Controller struct {
	cfg       *config.Config
	pwm       PWMWriter
	readCPU   func() (float64, error)
	diskTemps TempPoller
	collector telemetry.Collector
	now       func() time.Time

	lastComputed   float64
	lastComputedAt time.Time
	lastApplied    float64
	appliedOnce    bool
	lastTemp       float64

	// Last emitted duty as Float64bits, readable from other
	// goroutines for the status page.
	published atomic.Uint64
}

// New builds a controller and probes the CPU temperature once. A
// missing thermal zone is a startup error; later read failures are
// only logged.
func New(cfg *config.Config, pwm PWMWriter, readCPU func() (float64, error), diskTemps TempPoller, collector telemetry.Collector) (*Controller, error) {
	c := &Controller{
		cfg:       cfg,
		pwm:       pwm,
		readCPU:   readCPU,
		diskTemps: diskTemps,
		collector: collector,
		now:       time.Now,
	}

	if _, err := readCPU(); err != nil {
		return nil, errors.New().Wrap(ErrTemperatureRead, err)
	}

	return c, nil
}

// ReadTemperature combines the CPU temperature with the polled average
// drive temperature when the fan curve is configured to include disks.
func (c *Controller) ReadTemperature() (float64, error) {
	cpu, err := c.readCPU()
	if err != nil {
		return 0, errors.New().Wrap(ErrTemperatureRead, err)
	}

	if !c.cfg.Fan.TempDisks || c.diskTemps == nil {
		return cpu, nil
	}

	c.diskTemps.Poll(false)

	return max(cpu, c.diskTemps.Average()), nil
}

// ComputeDutyCycle maps a temperature to a duty-cycle percent using
// the configured curve.
func (c *Controller) ComputeDutyCycle(temp float64) float64 {
	if c.cfg.Fan.Linear {
		span := c.cfg.Fan.Lv3 - c.cfg.Fan.Lv0
		slope := 1.0
		if span > 0 {
			slope = (linearMaxDuty - linearMinDuty) / span
		}
		dc := slope*(temp-c.cfg.Fan.Lv0) + linearMinDuty

		return min(linearMaxDuty, max(dc, linearMinDuty))
	}

	switch {
	case temp >= c.cfg.Fan.Lv3:
		return 100
	case temp >= c.cfg.Fan.Lv2:
		return 75
	case temp >= c.cfg.Fan.Lv1:
		return 50
	case temp >= c.cfg.Fan.Lv0:
		return 25
	}

	return idleDuty
}

// DutyCycle returns the duty cycle to emit now. When the fan is
// switched off it is the near-zero placeholder; otherwise the cached
// value, recomputed at most once per recompute interval.
func (c *Controller) DutyCycle() float64 {
	if !c.cfg.FanEnabled() {
		return disabledDuty
	}

	now := c.now()
	if now.Sub(c.lastComputedAt) > recomputeInterval {
		temp, err := c.ReadTemperature()
		if err != nil {
			logger.Warn().Err(err).Msg("Temperature read failed, keeping last duty cycle")

			return c.lastComputed
		}

		c.lastComputedAt = now
		c.lastTemp = temp
		c.lastComputed = c.ComputeDutyCycle(temp)
	}

	return c.lastComputed
}

// Tick emits the current duty cycle to the PWM output if it changed
// since the last successful write. Write failures are logged and the
// same value is retried on the next tick.
func (c *Controller) Tick(ctx context.Context) {
	duty := c.DutyCycle()
	if c.appliedOnce && duty == c.lastApplied {
		return
	}

	if err := c.pwm.SetDutyCycle(duty); err != nil {
		logger.Error().Err(err).Float64("duty_cycle", duty).Msg("Failed to set fan duty cycle")

		return
	}

	logger.Debug().
		Float64("duty_cycle", duty).
		Float64("temperature", c.lastTemp).
		Bool("fan_enabled", c.cfg.FanEnabled()).
		Msg("Fan duty cycle applied")

	c.lastApplied = duty
	c.appliedOnce = true
	c.published.Store(math.Float64bits(duty))

	if c.collector != nil {
		snapshot := &telemetry.Snapshot{
			Timestamp:    c.now(),
			Temperature:  c.lastTemp,
			ComputedDuty: c.lastComputed,
			AppliedDuty:  duty,
			FanEnabled:   c.cfg.FanEnabled(),
		}
		if err := c.collector.Record(ctx, snapshot); err != nil {
			logger.Debug().Err(err).Msg("Failed to record fan snapshot")
		}
	}
}

// CurrentDuty returns the last duty cycle successfully written to the
// fan. Safe to call from any goroutine.
func (c *Controller) CurrentDuty() float64 {
	return math.Float64frombits(c.published.Load())
}

// Run polls the control loop until the context is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}
