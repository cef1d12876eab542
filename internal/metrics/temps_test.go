package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"codeberg.org/mutker/pentactl/internal/errors"
)

type fakeTempSource struct {
	disks []string
	temps map[string]float64
	polls int
}

func (f *fakeTempSource) SataDisks() ([]string, error) {
	f.polls++
	return f.disks, nil
}

func (f *fakeTempSource) DiskTemperature(disk string) (float64, error) {
	temp, ok := f.temps[disk]
	if !ok {
		return 0, errors.New().New(errors.ErrUnavailable)
	}
	return temp, nil
}

func TestTempPollerAverageAndSentinel(t *testing.T) {
	src := &fakeTempSource{
		disks: []string{"sda", "sdb", "sdc"},
		temps: map[string]float64{"sda": 30, "sdb": 40},
	}
	p := NewTempPoller(src, time.Minute, false)

	temps := p.Poll(false)
	assert.Equal(t, []DiskTemp{
		{Disk: "sda", Value: "30°C"},
		{Disk: "sdb", Value: "40°C"},
		{Disk: "sdc", Value: "----"},
	}, temps)
	assert.InDelta(t, 35.0, p.Average(), 1e-9, "unreadable drives excluded from average")
}

func TestTempPollerRespectsPollDelay(t *testing.T) {
	src := &fakeTempSource{disks: []string{"sda"}, temps: map[string]float64{"sda": 30}}
	p := NewTempPoller(src, time.Hour, false)

	p.Poll(false)
	p.Poll(false)
	p.Poll(false)
	assert.Equal(t, 1, src.polls, "polls within the delay serve cached results")

	p.Poll(true)
	assert.Equal(t, 2, src.polls, "force bypasses the delay")
}

func TestTempPollerFahrenheitFormatting(t *testing.T) {
	src := &fakeTempSource{disks: []string{"sda"}, temps: map[string]float64{"sda": 30}}
	p := NewTempPoller(src, time.Minute, true)

	temps := p.Poll(false)
	assert.Equal(t, "86°F", temps[0].Value)
	assert.InDelta(t, 30.0, p.Average(), 1e-9, "average stays in Celsius for the fan curve")
}
