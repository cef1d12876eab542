package display

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/pentactl/internal/config"
)

type fakeDevice struct {
	mu     sync.Mutex
	draws  [][]Region
	clears int
	err    error
}

func (d *fakeDevice) Draw(regions []Region) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = append(d.draws, regions)

	return d.err
}

func (d *fakeDevice) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++

	return nil
}

type renderCall struct {
	page    Page
	advance bool
}

type fakeRenderer struct {
	pages     []Page
	pageCalls int
	renders   []renderCall
	err       error
}

func (r *fakeRenderer) Pages() []Page {
	r.pageCalls++

	return append([]Page(nil), r.pages...)
}

func (r *fakeRenderer) Render(p Page, advance bool) ([]Region, error) {
	r.renders = append(r.renders, renderCall{page: p, advance: advance})
	if r.err != nil {
		return nil, r.err
	}

	return threeLines(p.Kind.String(), "", ""), nil
}

func testScheduler(cfg *config.Config, device *fakeDevice, renderer *fakeRenderer) (*Scheduler, *time.Time) {
	s := NewScheduler(cfg, device, renderer)
	current := time.Unix(1000, 0)
	s.now = func() time.Time { return current }

	return s, &current
}

func TestAdvanceRotatesAndRegenerates(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{Time: 10 * time.Second}}
	renderer := &fakeRenderer{pages: []Page{
		{Kind: PageSystemInfo0},
		{Kind: PageSystemInfo1},
	}}
	device := &fakeDevice{}
	s, _ := testScheduler(cfg, device, renderer)

	for i := 0; i < 3; i++ {
		s.handle(true)
	}

	require.Len(t, renderer.renders, 3)
	assert.Equal(t, PageSystemInfo0, renderer.renders[0].page.Kind)
	assert.Equal(t, PageSystemInfo1, renderer.renders[1].page.Kind)
	// Rotation wrapped, so the list was regenerated.
	assert.Equal(t, PageSystemInfo0, renderer.renders[2].page.Kind)
	assert.Equal(t, 2, renderer.pageCalls)
	assert.Len(t, device.draws, 3)
}

func TestAdvanceResetsBothDeadlines(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{
		Time:    10 * time.Second,
		Refresh: 3 * time.Second,
	}}
	renderer := &fakeRenderer{pages: []Page{{Kind: PageSystemInfo0}}}
	s, now := testScheduler(cfg, &fakeDevice{}, renderer)

	s.handle(true)

	assert.Equal(t, now.Add(10*time.Second).UnixNano(), s.nextAdvanceAt.Load())
	assert.Equal(t, now.Add(3*time.Second).UnixNano(), s.nextRefreshAt.Load())
}

func TestRefreshRedrawsCurrentPage(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{Refresh: 3 * time.Second}}
	renderer := &fakeRenderer{pages: []Page{
		{Kind: PageSystemInfo0},
		{Kind: PageSystemInfo1},
	}}
	device := &fakeDevice{}
	s, now := testScheduler(cfg, device, renderer)

	s.handle(true)
	advanceDeadline := s.nextAdvanceAt.Load()
	s.handle(false)

	require.Len(t, renderer.renders, 2)
	assert.Equal(t, renderer.renders[0].page, renderer.renders[1].page)
	assert.True(t, renderer.renders[0].advance)
	assert.False(t, renderer.renders[1].advance)
	// A refresh pushes only the refresh deadline.
	assert.Equal(t, advanceDeadline, s.nextAdvanceAt.Load())
	assert.Equal(t, now.Add(3*time.Second).UnixNano(), s.nextRefreshAt.Load())
}

func TestRefreshBeforeFirstAdvanceIsNoop(t *testing.T) {
	renderer := &fakeRenderer{pages: []Page{{Kind: PageSystemInfo0}}}
	device := &fakeDevice{}
	s, _ := testScheduler(&config.Config{}, device, renderer)

	s.handle(false)

	assert.Empty(t, renderer.renders)
	assert.Empty(t, device.draws)
}

func TestRenderErrorSkipsDraw(t *testing.T) {
	renderer := &fakeRenderer{
		pages: []Page{{Kind: PageSystemInfo0}},
		err:   assert.AnError,
	}
	device := &fakeDevice{}
	s, _ := testScheduler(&config.Config{}, device, renderer)

	s.handle(true)

	assert.Len(t, renderer.renders, 1)
	assert.Empty(t, device.draws)
}

func TestEmptyPageListIsSafe(t *testing.T) {
	renderer := &fakeRenderer{}
	device := &fakeDevice{}
	s, _ := testScheduler(&config.Config{}, device, renderer)

	s.handle(true)

	assert.Empty(t, device.draws)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func sliderScheduler(cfg *config.Config) (*Scheduler, *fakeClock) {
	s := NewScheduler(cfg, &fakeDevice{}, &fakeRenderer{})
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s.now = clock.now

	return s, clock
}

func expectAdvance(t *testing.T, s *Scheduler) {
	t.Helper()

	select {
	case msg := <-s.queue:
		assert.True(t, msg)
	case <-time.After(time.Second):
		t.Fatal("expected an advance message")
	}
}

func expectNoMessage(t *testing.T, s *Scheduler) {
	t.Helper()

	select {
	case <-s.queue:
		t.Fatal("unexpected queue message")
	case <-time.After(4 * pollInterval):
	}
}

func TestRunAutoSliderDisabledReturns(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{Auto: false, Time: time.Second}}
	s, _ := sliderScheduler(cfg)

	done := make(chan struct{})
	go func() {
		s.RunAutoSlider(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunAutoSlider did not return with auto disabled")
	}
	assert.Empty(t, s.queue)
}

func TestRunAutoSliderEnqueuesOnCadence(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{Auto: true, Time: time.Second}}
	s, clock := sliderScheduler(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunAutoSlider(ctx)

	expectAdvance(t, s)

	clock.advance(1100 * time.Millisecond)
	expectAdvance(t, s)

	// The loop pushed the deadline out by another period, so a frozen
	// clock produces nothing further.
	expectNoMessage(t, s)
}

func TestRunAutoSliderZeroPeriodIdles(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{Auto: true, Time: 0}}
	s, _ := sliderScheduler(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunAutoSlider(ctx)

	expectAdvance(t, s)
	expectNoMessage(t, s)
}

func TestRunAutoSliderSetsDeadlineBeforeFirstEnqueue(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{Auto: true, Time: time.Hour}}
	s, clock := sliderScheduler(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunAutoSlider(ctx)

	expectAdvance(t, s)

	// Even with the startup message unconsumed, the deadline is
	// already a full period out, so the ticker must not enqueue a
	// second advance.
	assert.Equal(t, clock.now().Add(time.Hour).UnixNano(), s.nextAdvanceAt.Load())
	expectNoMessage(t, s)
}

func TestRunRefreshDisabledProducesNothing(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{Refresh: 0}}
	s, _ := testScheduler(cfg, &fakeDevice{}, &fakeRenderer{})

	done := make(chan struct{})
	go func() {
		s.RunRefresh(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunRefresh did not return with refresh disabled")
	}
	assert.Empty(t, s.queue)
}

func TestEnqueueAdvanceDropsWhenFull(t *testing.T) {
	s, _ := testScheduler(&config.Config{}, &fakeDevice{}, &fakeRenderer{})

	for i := 0; i < queueCapacity+5; i++ {
		s.EnqueueAdvance()
	}

	assert.Len(t, s.queue, queueCapacity)
}

func TestConsumerDrainsQueue(t *testing.T) {
	cfg := &config.Config{Slider: config.SliderConfig{Time: 10 * time.Second}}
	renderer := &fakeRenderer{pages: []Page{{Kind: PageSystemInfo0}}}
	device := &fakeDevice{}
	s, _ := testScheduler(cfg, device, renderer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.RunConsumer(ctx)

	s.EnqueueAdvance()
	s.EnqueueAdvance()

	assert.Eventually(t, func() bool {
		device.mu.Lock()
		defer device.mu.Unlock()

		return len(device.draws) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestBanners(t *testing.T) {
	device := &fakeDevice{}
	s, _ := testScheduler(&config.Config{}, device, &fakeRenderer{})

	s.Welcome()
	require.Len(t, device.draws, 1)
	assert.Equal(t, "ROCKPi SATA HAT", device.draws[0][0].Text)
}
