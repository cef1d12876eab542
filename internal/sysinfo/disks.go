package sysinfo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"codeberg.org/mutker/pentactl/internal/errors"
)

const diskUsageCacheTTL = 30 * time.Second

// StripPartition removes trailing partition digits from an sd* device
// name (sda1 -> sda). Other device names pass through unchanged.
func StripPartition(disk string) string {
	for strings.Contains(disk, "sd") && len(disk) > 0 && unicode.IsDigit(rune(disk[len(disk)-1])) {
		disk = disk[:len(disk)-1]
	}

	return disk
}

// DiskList resolves the configured mount points to mounted device
// names, sorted. Unmounted entries are skipped.
func DiskList(mntPoints []string) []string {
	var disks []string
	for _, mnt := range mntPoints {
		cmd := fmt.Sprintf(`df -Bg | awk '$6=="%s" {printf "%%s", $1}'`, mnt)
		out, err := output(cmd)
		if err != nil || out == "" {
			continue
		}

		parts := strings.Split(out, "/")
		disks = append(disks, parts[len(parts)-1])
	}
	sort.Strings(disks)

	return disks
}

// Zpools returns the imported ZFS pools with their capacity
// percentage.
func Zpools() (map[string]string, error) {
	out, err := output("zpool list -Ho name,cap")
	if err != nil {
		return nil, err
	}

	pools := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			pools[fields[0]] = fields[1]
		}
	}

	return pools, nil
}

// PoolCounters samples a zpool's transfer counters via zpool iostat.
// When block is true the command itself sleeps for the requested
// interval and reports the delta over it; otherwise it returns the
// cumulative totals since import, and the caller divides by uptime.
func PoolCounters(pool string, interval time.Duration, block bool) (rx, tx uint64, err error) {
	cmd := fmt.Sprintf("zpool iostat %s -Hp", pool)
	if block {
		seconds := int(math.Max(1, interval.Seconds()))
		cmd += fmt.Sprintf("y %d 1", seconds)
	}

	out, err := output(cmd)
	if err != nil {
		return 0, 0, err
	}

	fields := strings.Fields(out)
	if len(fields) < 7 {
		return 0, 0, errors.New().WithData(ErrCounterRead, pool)
	}

	rx, err = strconv.ParseUint(fields[5], 10, 64)
	if err != nil {
		return 0, 0, errors.New().Wrap(ErrCounterRead, err)
	}

	tx, err = strconv.ParseUint(fields[6], 10, 64)
	if err != nil {
		return 0, 0, errors.New().Wrap(ErrCounterRead, err)
	}

	return rx, tx, nil
}

// SataDisks lists all sd* block devices, mounted or not.
func SataDisks() ([]string, error) {
	out, err := output(`lsblk -d | egrep ^sd | awk '{print $1}'`)
	if err != nil {
		return nil, err
	}

	var disks []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			disks = append(disks, line)
		}
	}
	sort.Strings(disks)

	return disks, nil
}

// DiskTemperature reads a drive's SMART temperature attribute in
// degrees Celsius.
func DiskTemperature(disk string) (float64, error) {
	cmd := fmt.Sprintf(`smartctl -A /dev/%s | egrep ^194 | awk '{print $10}'`, disk)
	out, err := output(cmd)
	if err != nil {
		return 0, err
	}

	temp, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, errors.New().Wrap(ErrTemperatureRead, err)
	}

	return temp, nil
}

type diskUsageCache struct {
	mu      sync.Mutex
	entries [][2]string
	at      time.Time
}

var usageCache diskUsageCache

// DiskUsage returns {device, used%} pairs for the root filesystem,
// every configured mount point and, when enabled, each zpool. Shell
// queries dominate the cost so results are cached for 30 seconds.
func DiskUsage(mntPoints []string, zfs bool) [][2]string {
	usageCache.mu.Lock()
	defer usageCache.mu.Unlock()

	if usageCache.entries != nil && time.Since(usageCache.at) < diskUsageCacheTTL {
		return usageCache.entries
	}

	entries := make([][2]string, 0, len(mntPoints)+1)

	root, err := output(`df -h | awk '$NF=="/"{printf "%s", $5}'`)
	if err != nil {
		root = "----"
	}
	entries = append(entries, [2]string{"root", root})

	for _, disk := range DiskList(mntPoints) {
		cmd := fmt.Sprintf(`df -Bg | awk '$1=="/dev/%s" {printf "%%s", $5}'`, disk)
		used, err := output(cmd)
		if err != nil || used == "" {
			used = "----"
		}
		entries = append(entries, [2]string{disk, used})
	}

	if zfs {
		pools, err := Zpools()
		if err == nil {
			names := make([]string, 0, len(pools))
			for name := range pools {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				entries = append(entries, [2]string{name, pools[name]})
			}
		}
	}

	usageCache.entries = entries
	usageCache.at = time.Now()

	return entries
}
