package display

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/logger"
)

const (
	// Both timer goroutines poll their deadline at this interval so a
	// deadline reset by the consumer takes effect without rescheduling.
	pollInterval = 100 * time.Millisecond

	// Queued messages beyond this are dropped rather than blocking the
	// producer; the consumer drains far faster than gestures arrive.
	queueCapacity = 16
)

// Scheduler owns the page rotation. The auto-slider timer, the refresh
// timer and the gesture dispatcher all produce into one queue; a single
// consumer pops pages, renders and draws. True messages advance the
// rotation, false messages redraw the current page.
type Scheduler struct {
	cfg      *config.Config
	device   Device
	renderer Renderer

	queue chan bool

	// mu serializes all device access, including the banners drawn
	// from outside the consumer.
	mu      sync.Mutex
	pending []Page
	current Page
	hasPage bool

	// Draw deadlines as unix nanos, shared between the consumer that
	// resets them and the timers that poll them.
	nextAdvanceAt atomic.Int64
	nextRefreshAt atomic.Int64

	now func() time.Time
}

func NewScheduler(cfg *config.Config, device Device, renderer Renderer) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		device:   device,
		renderer: renderer,
		queue:    make(chan bool, queueCapacity),
		now:      time.Now,
	}
}

// EnqueueAdvance requests a page transition, typically from a gesture.
// The message is dropped if the queue is saturated.
func (s *Scheduler) EnqueueAdvance() {
	select {
	case s.queue <- true:
	default:
		logger.Debug().Msg("Display queue full, dropping advance")
	}
}

// RunAutoSlider advances the rotation whenever the slider period
// elapses without a draw. A manual advance pushes the deadline out, so
// the timer measures idle time since the last transition.
func (s *Scheduler) RunAutoSlider(ctx context.Context) {
	if !s.cfg.Slider.Auto {
		return
	}

	// First page goes up immediately. The deadline is set before the
	// enqueue so a slow first render cannot trip the ticker into a
	// second advance.
	if s.cfg.Slider.Time > 0 {
		s.nextAdvanceAt.Store(s.now().Add(s.cfg.Slider.Time).UnixNano())
	}
	select {
	case s.queue <- true:
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			period := s.cfg.Slider.Time
			if period <= 0 {
				continue
			}
			if s.now().UnixNano() < s.nextAdvanceAt.Load() {
				continue
			}
			// Push the deadline before enqueueing so a busy
			// consumer does not cause a burst of advances.
			s.nextAdvanceAt.Store(s.now().Add(period).UnixNano())
			s.EnqueueAdvance()
		}
	}
}

// RunRefresh redraws the current page whenever the refresh period
// elapses without a draw. A refresh period of zero disables the timer
// entirely; it never produces messages.
func (s *Scheduler) RunRefresh(ctx context.Context) {
	if s.cfg.Slider.Refresh <= 0 {
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.now().UnixNano() < s.nextRefreshAt.Load() {
				continue
			}
			s.nextRefreshAt.Store(s.now().Add(s.cfg.Slider.Refresh).UnixNano())
			select {
			case s.queue <- false:
			default:
			}
		}
	}
}

// RunConsumer is the sole goroutine that touches the device after
// startup. It drains the queue until the context is cancelled.
func (s *Scheduler) RunConsumer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case advance := <-s.queue:
			s.handle(advance)
		}
	}
}

func (s *Scheduler) handle(advance bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if advance {
		if len(s.pending) == 0 {
			s.pending = s.renderer.Pages()
			if len(s.pending) == 0 {
				logger.Warn().Msg("No display pages available")
				return
			}
		}
		s.current = s.pending[0]
		s.pending = s.pending[1:]
		s.hasPage = true
	} else if !s.hasPage {
		// Nothing drawn yet; a refresh has no page to redraw.
		return
	}

	s.draw(advance)

	now := s.now()
	if advance && s.cfg.Slider.Time > 0 {
		s.nextAdvanceAt.Store(now.Add(s.cfg.Slider.Time).UnixNano())
	}
	if s.cfg.Slider.Refresh > 0 {
		s.nextRefreshAt.Store(now.Add(s.cfg.Slider.Refresh).UnixNano())
	}
}

func (s *Scheduler) draw(advance bool) {
	regions, err := s.renderer.Render(s.current, advance)
	if err != nil {
		logger.Debug().Err(err).Str("page", s.current.Kind.String()).Msg("Page render failed")
		return
	}

	if err := s.device.Draw(regions); err != nil {
		err = errors.New().Wrap(ErrDrawFailed, err)
		logger.Error().Err(err).Str("page", s.current.Kind.String()).Msg("Display draw failed")
	}
}

// Welcome paints the startup banner before the rotation begins.
func (s *Scheduler) Welcome() {
	s.mu.Lock()
	defer s.mu.Unlock()

	regions := []Region{
		{X: 0, Y: 0, Text: "ROCKPi SATA HAT"},
		{X: 32, Y: 16, Text: "Loading..."},
	}
	if err := s.device.Draw(regions); err != nil {
		logger.Debug().Err(err).Msg("Welcome banner draw failed")
	}
}

// Goodbye paints the shutdown banner, holds it briefly and clears the
// display.
func (s *Scheduler) Goodbye() {
	s.mu.Lock()
	defer s.mu.Unlock()

	regions := []Region{{X: 32, Y: 8, Text: "Good Bye ~"}}
	if err := s.device.Draw(regions); err != nil {
		logger.Debug().Err(err).Msg("Goodbye banner draw failed")
	}
	time.Sleep(2 * time.Second)

	if err := s.device.Clear(); err != nil {
		logger.Debug().Err(err).Msg("Display clear failed")
	}
}
