package fan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/metrics"
)

type fakePWM struct {
	writes []float64
	err    error
}

func (f *fakePWM) SetDutyCycle(percent float64) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, percent)
	return nil
}

type fakeTemps struct {
	average float64
	polls   int
}

func (f *fakeTemps) Poll(bool) []metrics.DiskTemp {
	f.polls++
	return nil
}

func (f *fakeTemps) Average() float64 { return f.average }

func testConfig() *config.Config {
	cfg := &config.Config{
		Fan: config.FanConfig{Lv0: 35, Lv1: 40, Lv2: 45, Lv3: 50},
	}
	cfg.ToggleFan() // enabled

	return cfg
}

func newTestController(t *testing.T, cfg *config.Config, pwm PWMWriter, temp *float64) *Controller {
	t.Helper()

	readCPU := func() (float64, error) { return *temp, nil }
	c, err := New(cfg, pwm, readCPU, nil, nil)
	require.NoError(t, err)

	return c
}

func TestComputeDutyCycleStepMode(t *testing.T) {
	temp := 0.0
	c := newTestController(t, testConfig(), &fakePWM{}, &temp)

	tests := []struct {
		temp float64
		want float64
	}{
		{20, 10},
		{34.9, 10},
		{35, 25},
		{39.9, 25},
		{40, 50},
		{45, 75},
		{49.9, 75},
		{50, 100},
		{70, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, c.ComputeDutyCycle(tt.temp), 1e-9, "temp %.1f", tt.temp)
	}

	// Monotonically non-decreasing over the whole range.
	prev := 0.0
	for temp := 0.0; temp <= 80; temp += 0.5 {
		dc := c.ComputeDutyCycle(temp)
		assert.GreaterOrEqual(t, dc, prev, "duty cycle decreased at %.1f", temp)
		assert.Contains(t, []float64{10, 25, 50, 75, 100}, dc)
		prev = dc
	}
}

func TestComputeDutyCycleLinearMode(t *testing.T) {
	cfg := testConfig()
	cfg.Fan.Linear = true
	temp := 0.0
	c := newTestController(t, cfg, &fakePWM{}, &temp)

	assert.InDelta(t, 25, c.ComputeDutyCycle(cfg.Fan.Lv0), 1e-9)
	assert.InDelta(t, 100, c.ComputeDutyCycle(cfg.Fan.Lv3), 1e-9)
	assert.InDelta(t, 62.5, c.ComputeDutyCycle(42.5), 1e-9)
	assert.InDelta(t, 25, c.ComputeDutyCycle(-10), 1e-9, "clamped below lv0")
	assert.InDelta(t, 100, c.ComputeDutyCycle(90), 1e-9, "clamped above lv3")
}

func TestComputeDutyCycleLinearDegenerateSpan(t *testing.T) {
	cfg := testConfig()
	cfg.Fan.Linear = true
	cfg.Fan.Lv3 = cfg.Fan.Lv0 // zero span: slope falls back to 1.0
	temp := 0.0
	c := newTestController(t, cfg, &fakePWM{}, &temp)

	assert.InDelta(t, 45, c.ComputeDutyCycle(cfg.Fan.Lv0+20), 1e-9)
	assert.InDelta(t, 100, c.ComputeDutyCycle(cfg.Fan.Lv0+200), 1e-9)
}

func TestDutyCycleRateLimited(t *testing.T) {
	temp := 47.0
	c := newTestController(t, testConfig(), &fakePWM{}, &temp)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	require.InDelta(t, 75, c.DutyCycle(), 1e-9)

	// Temperature changes but the 5s window has not elapsed.
	temp = 60
	now = now.Add(2 * time.Second)
	assert.InDelta(t, 75, c.DutyCycle(), 1e-9, "recompute suppressed inside rate-limit window")

	now = now.Add(4 * time.Second)
	assert.InDelta(t, 100, c.DutyCycle(), 1e-9, "recomputed after window elapsed")
}

func TestDutyCycleWhenDisabledIsNeverZero(t *testing.T) {
	cfg := testConfig()
	temp := 47.0
	c := newTestController(t, cfg, &fakePWM{}, &temp)

	cfg.ToggleFan() // disable
	dc := c.DutyCycle()
	assert.Greater(t, dc, 0.0)
	assert.InDelta(t, 0.1, dc, 1e-9)
}

func TestTickWritesOnlyOnChange(t *testing.T) {
	temp := 47.0
	pwm := &fakePWM{}
	c := newTestController(t, testConfig(), pwm, &temp)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Tick(ctx)
	c.Tick(ctx)
	c.Tick(ctx)
	assert.Equal(t, []float64{75}, pwm.writes, "unchanged duty cycle is not rewritten")

	temp = 60
	now = now.Add(6 * time.Second)
	c.Tick(ctx)
	assert.Equal(t, []float64{75, 100}, pwm.writes)
}

func TestTickRetriesAfterWriteFailure(t *testing.T) {
	temp := 47.0
	pwm := &fakePWM{err: errors.New().New(errors.ErrUnavailable)}
	c := newTestController(t, testConfig(), pwm, &temp)
	ctx := context.Background()

	c.Tick(ctx) // write fails, logged, loop continues
	assert.Empty(t, pwm.writes)

	pwm.err = nil
	c.Tick(ctx)
	assert.Equal(t, []float64{75}, pwm.writes, "same value retried on next tick")
}

func TestReadTemperatureIncludesDiskAverage(t *testing.T) {
	cfg := testConfig()
	cfg.Fan.TempDisks = true
	temp := 40.0
	temps := &fakeTemps{average: 55}

	readCPU := func() (float64, error) { return temp, nil }
	c, err := New(cfg, &fakePWM{}, readCPU, temps, nil)
	require.NoError(t, err)

	got, err := c.ReadTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 55, got, 1e-9, "max of CPU and disk average")
	assert.Equal(t, 1, temps.polls)

	temps.average = 20
	got, err = c.ReadTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 40, got, 1e-9)
}

func TestNewFailsOnFirstTemperatureRead(t *testing.T) {
	readCPU := func() (float64, error) {
		return 0, errors.New().New(errors.ErrResourceNotFound)
	}

	_, err := New(testConfig(), &fakePWM{}, readCPU, nil, nil)
	require.Error(t, err, "missing thermal zone is fatal at startup")
}
