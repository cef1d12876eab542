package metrics

import (
	"fmt"
	"sync"
	"time"
)

// TempSource lists temperature-capable drives and reads their SMART
// temperature.
type TempSource interface {
	SataDisks() ([]string, error)
	DiskTemperature(disk string) (float64, error)
}

// DiskTemp is one drive's formatted temperature reading. Value is the
// sentinel "----" when the drive's temperature cannot be read.
type DiskTemp struct {
	Disk  string
	Value string
}

// TempPoller polls drive temperatures at a low frequency. Reading
// SMART attributes shells out per drive, so polls are spaced at least
// pollDelay apart and the last results are served in between. The
// average is read by the fan controller from its own goroutine.
type TempPoller struct {
	src        TempSource
	pollDelay  time.Duration
	fahrenheit bool
	now        func() time.Time

	mu       sync.Mutex
	temps    []DiskTemp
	average  float64
	lastPoll time.Time
}

func NewTempPoller(src TempSource, pollDelay time.Duration, fahrenheit bool) *TempPoller {
	return &TempPoller{
		src:        src,
		pollDelay:  pollDelay,
		fahrenheit: fahrenheit,
		now:        time.Now,
	}
}

// Poll reads all drive temperatures if the poll delay has elapsed
// since the last poll (or force is set) and returns the readings.
// Unreadable drives get the "----" sentinel and do not contribute to
// the average.
func (p *TempPoller) Poll(force bool) []DiskTemp {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !force && !p.lastPoll.IsZero() && now.Sub(p.lastPoll) < p.pollDelay {
		return p.temps
	}

	disks, err := p.src.SataDisks()
	if err != nil {
		p.lastPoll = now

		return p.temps
	}

	temps := make([]DiskTemp, 0, len(disks))
	var sum float64
	var readable int
	for _, disk := range disks {
		temp, err := p.src.DiskTemperature(disk)
		if err != nil {
			temps = append(temps, DiskTemp{Disk: disk, Value: "----"})
			continue
		}

		temps = append(temps, DiskTemp{Disk: disk, Value: p.format(temp)})
		sum += temp
		readable++
	}

	p.temps = temps
	if readable > 0 {
		p.average = sum / float64(readable)
	} else {
		p.average = 0
	}
	p.lastPoll = now

	return p.temps
}

// Average returns the average drive temperature in degrees Celsius
// from the most recent poll. Zero when nothing has been read yet.
func (p *TempPoller) Average() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.average
}

func (p *TempPoller) format(celsius float64) string {
	if p.fahrenheit {
		return fmt.Sprintf("%.0f°F", celsius*1.8+32)
	}

	return fmt.Sprintf("%.0f°C", celsius)
}
