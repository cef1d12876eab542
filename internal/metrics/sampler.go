// Package metrics turns raw monotonic device counters into smoothed
// per-second transfer rates. One cache entry is kept per device;
// entries are created on first sample and never deleted, so a device
// that disappears simply stops being asked about.
package metrics

import (
	"time"

	"codeberg.org/mutker/pentactl/internal/errors"
)

const bytesPerMiB = 1024 * 1024

// Rate holds receive/transmit rates in MB/s.
type Rate struct {
	RX float64
	TX float64
}

// Source provides raw counters and device facts. Implemented by
// sysinfo against the live system and by fakes in tests.
type Source interface {
	// InterfaceCounters returns cumulative rx/tx bytes for a network
	// interface.
	InterfaceCounters(name string) (rx, tx uint64, err error)
	// DiskCounters returns cumulative sectors read/written for a
	// block device.
	DiskCounters(disk string) (rx, tx uint64, err error)
	// SectorSize returns the hardware sector size of a block device.
	SectorSize(disk string) (int, error)
	// PoolCounters samples zpool transfer counts. With block set the
	// call sleeps for the interval and returns a delta over it;
	// otherwise it returns cumulative totals since pool import.
	PoolCounters(pool string, interval time.Duration, block bool) (rx, tx uint64, err error)
	// UptimeSeconds returns the system uptime.
	UptimeSeconds() (float64, error)
}

type rawSample struct {
	rx uint64
	tx uint64
	at time.Time
}

// Sampler owns the per-device caches. It is not safe for concurrent
// use; all rate queries come from the display consumer, which
// serializes renders.
type Sampler struct {
	src Source
	now func() time.Time

	ifaceRaw  map[string]rawSample
	ifaceRate map[string]Rate
	diskRaw   map[string]rawSample
	diskRate  map[string]Rate
	poolRate  map[string]Rate
	poolSeen  map[string]bool

	sectorSizes map[string]int
}

func NewSampler(src Source) *Sampler {
	return &Sampler{
		src:         src,
		now:         time.Now,
		ifaceRaw:    make(map[string]rawSample),
		ifaceRate:   make(map[string]Rate),
		diskRaw:     make(map[string]rawSample),
		diskRate:    make(map[string]Rate),
		poolRate:    make(map[string]Rate),
		poolSeen:    make(map[string]bool),
		sectorSizes: make(map[string]int),
	}
}

// InterfaceRate samples an interface's byte counters and returns the
// rate since the previous sample. The first sample of a device only
// establishes the baseline and reports zero.
func (s *Sampler) InterfaceRate(name string) (Rate, error) {
	rx, tx, err := s.src.InterfaceCounters(name)
	if err != nil {
		return Rate{}, errors.New().Wrap(ErrSampleUnavailable, err)
	}

	raw := rawSample{rx: rx, tx: tx, at: s.now()}
	prev, seen := s.ifaceRaw[name]
	if seen {
		if rate, ok := deriveRate(prev, raw, 1); ok {
			s.ifaceRate[name] = rate
		}
	} else {
		s.ifaceRate[name] = Rate{}
	}
	s.ifaceRaw[name] = raw

	return s.ifaceRate[name], nil
}

// DiskRate samples a disk's sector counters and returns the byte rate
// since the previous sample. The sector size is resolved once per
// disk and cached.
func (s *Sampler) DiskRate(disk string) (Rate, error) {
	sectorSize, ok := s.sectorSizes[disk]
	if !ok {
		var err error
		sectorSize, err = s.src.SectorSize(disk)
		if err != nil {
			return Rate{}, errors.New().Wrap(ErrSampleUnavailable, err)
		}
		s.sectorSizes[disk] = sectorSize
	}

	rx, tx, err := s.src.DiskCounters(disk)
	if err != nil {
		return Rate{}, errors.New().Wrap(ErrSampleUnavailable, err)
	}

	raw := rawSample{rx: rx, tx: tx, at: s.now()}
	prev, seen := s.diskRaw[disk]
	if seen {
		if rate, ok := deriveRate(prev, raw, sectorSize); ok {
			s.diskRate[disk] = rate
		}
	} else {
		s.diskRate[disk] = Rate{}
	}
	s.diskRaw[disk] = raw

	return s.diskRate[disk], nil
}

// PoolRate samples a zpool. A live sample blocks for the given
// interval and divides the returned delta by it. The estimate path
// never blocks: it treats the pool's lifetime totals as the delta and
// the system uptime as the interval, yielding a lifetime-average rate.
func (s *Sampler) PoolRate(pool string, interval time.Duration, estimate bool) (Rate, error) {
	var (
		rx, tx  uint64
		err     error
		seconds float64
	)

	if estimate {
		seconds, err = s.src.UptimeSeconds()
		if err != nil {
			return Rate{}, errors.New().Wrap(ErrSampleUnavailable, err)
		}
		rx, tx, err = s.src.PoolCounters(pool, 0, false)
	} else {
		seconds = interval.Seconds()
		rx, tx, err = s.src.PoolCounters(pool, interval, true)
	}
	if err != nil {
		return Rate{}, errors.New().Wrap(ErrSampleUnavailable, err)
	}

	if !s.poolSeen[pool] {
		s.poolSeen[pool] = true
		s.poolRate[pool] = Rate{}

		return s.poolRate[pool], nil
	}

	if seconds > 0 {
		s.poolRate[pool] = Rate{
			RX: float64(rx) / seconds / bytesPerMiB,
			TX: float64(tx) / seconds / bytesPerMiB,
		}
	}

	return s.poolRate[pool], nil
}

// Prime establishes counter baselines for the given interfaces and
// disks so the first displayed rates cover a real elapsed window.
func (s *Sampler) Prime(interfaces, disks []string) {
	for _, name := range interfaces {
		s.InterfaceRate(name) //nolint:errcheck // baseline only
	}
	for _, disk := range disks {
		s.DiskRate(disk) //nolint:errcheck // baseline only
	}
}

// deriveRate computes MB/s between two raw samples. It reports false
// when the elapsed time is not positive (clock anomaly), in which case
// the previous rate must be kept. Counter decreases (device reset or
// overflow) are clamped to zero.
func deriveRate(prev, cur rawSample, unitSize int) (Rate, bool) {
	elapsed := cur.at.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return Rate{}, false
	}

	return Rate{
		RX: float64(counterDelta(prev.rx, cur.rx)) * float64(unitSize) / elapsed / bytesPerMiB,
		TX: float64(counterDelta(prev.tx, cur.tx)) * float64(unitSize) / elapsed / bytesPerMiB,
	}, true
}

func counterDelta(prev, cur uint64) uint64 {
	if cur < prev {
		return 0
	}

	return cur - prev
}
