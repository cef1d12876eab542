package display

import (
	"fmt"
	"sort"
	"time"

	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/metrics"
)

// RateSampler is the rate engine surface pages draw from.
type RateSampler interface {
	InterfaceRate(name string) (metrics.Rate, error)
	DiskRate(disk string) (metrics.Rate, error)
	PoolRate(pool string, interval time.Duration, estimate bool) (metrics.Rate, error)
}

// TempPoller supplies drive temperatures for the temperature page.
type TempPoller interface {
	Poll(force bool) []metrics.DiskTemp
}

// PageRenderer generates and renders the rotation pages.
type PageRenderer struct {
	cfg     *config.Config
	sys     SystemSource
	rates   RateSampler
	temps   TempPoller
	fanDuty func() float64
}

func NewPageRenderer(cfg *config.Config, sys SystemSource, rates RateSampler, temps TempPoller, fanDuty func() float64) *PageRenderer {
	return &PageRenderer{
		cfg:     cfg,
		sys:     sys,
		rates:   rates,
		temps:   temps,
		fanDuty: fanDuty,
	}
}

// Pages regenerates the rotation list. Any factory may contribute zero
// pages when its feature is disabled or no devices are present.
func (r *PageRenderer) Pages() []Page {
	pages := []Page{
		{Kind: PageSystemInfo0},
		{Kind: PageSystemInfo1},
		{Kind: PageDiskUsage},
	}

	if interfaces, err := r.sys.Interfaces(); err == nil {
		for _, name := range interfaces {
			pages = append(pages, Page{Kind: PageNetworkIO, Device: name})
		}
	}

	for _, disk := range r.sys.IODisks() {
		pages = append(pages, Page{Kind: PageDiskIO, Device: disk})
	}
	if r.cfg.Disk.ZFS {
		if pools, err := r.sys.Zpools(); err == nil {
			for _, name := range sortedKeys(pools) {
				pages = append(pages, Page{Kind: PageDiskIO, Device: name, Pool: true})
			}
		}
	}

	if r.cfg.Disk.DisksTemp && r.temps != nil {
		pages = append(pages, Page{Kind: PageDiskTemp})
	}

	return pages
}

// Render produces the text regions for a page. Unavailable samples are
// substituted with the "----" sentinel rather than failing the render.
func (r *PageRenderer) Render(p Page, advance bool) ([]Region, error) {
	switch p.Kind {
	case PageSystemInfo0:
		return r.renderSystemInfo0()
	case PageSystemInfo1:
		return r.renderSystemInfo1()
	case PageDiskUsage:
		return r.renderDiskUsage()
	case PageNetworkIO:
		return r.renderNetworkIO(p.Device)
	case PageDiskIO:
		return r.renderDiskIO(p.Device, p.Pool, advance)
	case PageDiskTemp:
		return r.renderDiskTemp()
	default:
		return nil, errors.New().WithData(ErrRenderFailed, p.Kind.String())
	}
}

func (r *PageRenderer) renderSystemInfo0() ([]Region, error) {
	up, err := r.sys.Query("up")
	if err != nil {
		return nil, errors.New().Wrap(ErrRenderFailed, err)
	}

	ip, err := r.sys.Query("ip")
	if err != nil {
		return nil, errors.New().Wrap(ErrRenderFailed, err)
	}

	return threeLines(up, r.formatCPUTemp(), ip), nil
}

func (r *PageRenderer) renderSystemInfo1() ([]Region, error) {
	cpu, err := r.sys.Query("cpu")
	if err != nil {
		return nil, errors.New().Wrap(ErrRenderFailed, err)
	}

	mem, err := r.sys.Query("mem")
	if err != nil {
		return nil, errors.New().Wrap(ErrRenderFailed, err)
	}

	fan := fmt.Sprintf("Fan speed: %d%%", int(r.fanDuty()))

	return threeLines(fan, cpu, mem), nil
}

// renderDiskUsage shows the root filesystem plus up to four more
// devices, two per line.
func (r *PageRenderer) renderDiskUsage() ([]Region, error) {
	entries := r.sys.DiskUsage()
	if len(entries) == 0 {
		return nil, errors.New().WithData(ErrRenderFailed, "no disk usage data")
	}

	line1 := fmt.Sprintf("Disk: %s %s", entries[0][0], entries[0][1])
	line2, line3 := pairLines(entries[1:])

	return threeLines(line1, line2, line3), nil
}

func (r *PageRenderer) renderNetworkIO(name string) ([]Region, error) {
	rx, tx := "----", "----"
	if rate, err := r.rates.InterfaceRate(name); err == nil {
		rx = fmt.Sprintf("Rx:%10.6f MB/s", rate.RX)
		tx = fmt.Sprintf("Tx:%10.6f MB/s", rate.TX)
	}

	return threeLines("Network ("+name+"):", rx, tx), nil
}

func (r *PageRenderer) renderDiskIO(device string, pool, advance bool) ([]Region, error) {
	var (
		rate metrics.Rate
		err  error
	)
	if pool {
		// Advancing must never stall on a blocking pool sample, so
		// the transition path takes the lifetime estimate.
		rate, err = r.rates.PoolRate(device, r.cfg.Slider.Refresh, advance)
	} else {
		rate, err = r.rates.DiskRate(device)
	}

	read, write := "----", "----"
	if err == nil {
		read = fmt.Sprintf("R:%11.6f MB/s", rate.RX)
		write = fmt.Sprintf("W:%11.6f MB/s", rate.TX)
	}

	title := "Disk"
	if pool {
		title = "Zpool"
	}

	return threeLines(title+" ("+device+"):", read, write), nil
}

func (r *PageRenderer) renderDiskTemp() ([]Region, error) {
	temps := r.temps.Poll(true)
	if len(temps) == 0 {
		return nil, errors.New().WithData(ErrRenderFailed, "no drives with temperatures")
	}

	pairs := make([][2]string, 0, len(temps))
	for _, t := range temps {
		pairs = append(pairs, [2]string{t.Disk, t.Value})
	}
	line2, line3 := pairLines(pairs)

	return threeLines("Disk Temps:", line2, line3), nil
}

func (r *PageRenderer) formatCPUTemp() string {
	temp, err := r.sys.CPUTemp()
	if err != nil {
		return "CPU Temp: ----"
	}

	if r.cfg.OLED.Fahrenheit {
		return fmt.Sprintf("CPU Temp: %.0f°F", temp*1.8+32)
	}

	return fmt.Sprintf("CPU Temp: %.1f°C", temp)
}

// pairLines lays out up to four {name, value} pairs on two lines.
func pairLines(pairs [][2]string) (string, string) {
	format := func(p [2]string) string { return p[0] + " " + p[1] }

	var line2, line3 string
	switch {
	case len(pairs) >= 4:
		line2 = format(pairs[0]) + "  " + format(pairs[1])
		line3 = format(pairs[2]) + "  " + format(pairs[3])
	case len(pairs) == 3:
		line2 = format(pairs[0]) + "  " + format(pairs[1])
		line3 = format(pairs[2])
	case len(pairs) == 2:
		line2 = format(pairs[0]) + "  " + format(pairs[1])
	case len(pairs) == 1:
		line2 = format(pairs[0])
	}

	return line2, line3
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
