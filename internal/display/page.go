// Package display rotates status pages on the OLED. Two timers and the
// gesture dispatcher produce into one queue; a single consumer owns the
// device and serializes every draw under the display lock.
package display

import "fmt"

// Region is one positioned line of text on the display.
type Region struct {
	X    int
	Y    int
	Text string
}

// Device is the physical display. Draw and Clear must be idempotent.
type Device interface {
	Draw(regions []Region) error
	Clear() error
}

// PageKind tags the fixed set of page variants.
type PageKind int

const (
	PageSystemInfo0 PageKind = iota
	PageSystemInfo1
	PageDiskUsage
	PageNetworkIO
	PageDiskIO
	PageDiskTemp
)

func (k PageKind) String() string {
	switch k {
	case PageSystemInfo0:
		return "system_info_0"
	case PageSystemInfo1:
		return "system_info_1"
	case PageDiskUsage:
		return "disk_usage"
	case PageNetworkIO:
		return "network_io"
	case PageDiskIO:
		return "disk_io"
	case PageDiskTemp:
		return "disk_temp"
	default:
		return fmt.Sprintf("page_kind_%d", int(k))
	}
}

// Page is one rotation entry. Device carries the interface, disk or
// pool name for the I/O pages.
type Page struct {
	Kind   PageKind
	Device string
	Pool   bool
}

// Renderer generates the rotation list and renders a page's text just
// before display. The advance flag selects the non-blocking estimate
// path for pages whose live sample would stall a page transition.
type Renderer interface {
	Pages() []Page
	Render(p Page, advance bool) ([]Region, error)
}

// Standard three-line layout used by every page.
const (
	lineY0 = -2
	lineY1 = 10
	lineY2 = 21
)

func threeLines(l0, l1, l2 string) []Region {
	return []Region{
		{X: 0, Y: lineY0, Text: l0},
		{X: 0, Y: lineY1, Text: l1},
		{X: 0, Y: lineY2, Text: l2},
	}
}
