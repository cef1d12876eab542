package display

import (
	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/sysinfo"
)

// SystemSource supplies the non-rate system facts pages show.
// Implemented over sysinfo for the live system and faked in tests.
type SystemSource interface {
	// Query returns trimmed text for one of the fixed status queries
	// (up, ip, cpu, mem, disk).
	Query(id string) (string, error)
	// CPUTemp returns the CPU temperature in degrees Celsius.
	CPUTemp() (float64, error)
	// Interfaces resolves the configured network interface list.
	Interfaces() ([]string, error)
	// IODisks lists the base device names whose I/O is monitored.
	IODisks() []string
	// Zpools lists imported pools with capacity percentage.
	Zpools() (map[string]string, error)
	// DiskUsage returns {device, used%} pairs for the usage page.
	DiskUsage() [][2]string
}

// systemSource binds sysinfo to the loaded configuration.
type systemSource struct {
	cfg *config.Config
}

// NewSystemSource returns the sysinfo-backed SystemSource.
func NewSystemSource(cfg *config.Config) SystemSource {
	return &systemSource{cfg: cfg}
}

func (s *systemSource) Query(id string) (string, error) {
	return sysinfo.Query(id)
}

func (s *systemSource) CPUTemp() (float64, error) {
	return sysinfo.CPUTemp()
}

func (s *systemSource) Interfaces() ([]string, error) {
	return sysinfo.InterfaceList(s.cfg.Network.Interfaces)
}

func (s *systemSource) IODisks() []string {
	disks := sysinfo.DiskList(s.cfg.Disk.IOUsageMntPoints)
	out := make([]string, 0, len(disks))
	for _, disk := range disks {
		out = append(out, sysinfo.StripPartition(disk))
	}

	return out
}

func (s *systemSource) Zpools() (map[string]string, error) {
	return sysinfo.Zpools()
}

func (s *systemSource) DiskUsage() [][2]string {
	return sysinfo.DiskUsage(s.cfg.Disk.SpaceUsageMntPoints, s.cfg.Disk.ZFS)
}
