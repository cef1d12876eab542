// Package sysinfo wraps the shell commands and sysfs files the daemon
// reads system status from. Everything here returns trimmed text or
// parsed counters; formatting and rate math live elsewhere.
package sysinfo

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/pentactl/internal/errors"
)

const thermalZonePath = "/sys/class/thermal/thermal_zone0/temp"

// Fixed set of status queries shown on the general info pages.
var commands = map[string]string{
	"up":   `echo Up: $(uptime -p | sed 's/ years,/y/g;s/ year,/y/g;s/ months,/m/g;s/ month,/m/g;s/ weeks,/w/g;s/ week,/w/g;s/ days,/d/g;s/ day,/d/g;s/ hours,/h/g;s/ hour,/h/g;s/ minutes/m/g;s/ minute/m/g' | cut -d ' ' -f2-)`,
	"ip":   `hostname -I | awk '{printf "IP %s", $1}'`,
	"cpu":  `uptime | tr , . | awk '{printf "CPU Load: %.2f%%", $(NF-2)}'`,
	"mem":  `free -m | awk 'NR==2{printf "Mem: %s/%s MB", $3,$2}'`,
	"disk": `df -h | awk '$NF=="/"{printf "Disk: %d/%d GB %s", $3,$2,$5}'`,
}

func output(cmd string) (string, error) {
	out, err := exec.Command("sh", "-c", cmd).Output()
	if err != nil {
		return "", errors.New().Wrap(ErrCommandFailed, err)
	}

	return strings.TrimSpace(string(out)), nil
}

// Query runs one of the fixed status commands and returns its trimmed
// output.
func Query(id string) (string, error) {
	cmd, ok := commands[id]
	if !ok {
		return "", errors.New().WithData(errors.ErrInvalidArgument, id)
	}

	return output(cmd)
}

// CPUTemp reads the CPU temperature in degrees Celsius from the
// thermal zone sysfs file.
func CPUTemp() (float64, error) {
	raw, err := os.ReadFile(thermalZonePath)
	if err != nil {
		return 0, errors.New().Wrap(ErrTemperatureRead, err)
	}

	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, errors.New().Wrap(ErrTemperatureRead, err)
	}

	return milli / 1000.0, nil
}

// BoardModel returns the device-tree model string.
func BoardModel() (string, error) {
	return output(`tr -d '\0' < /proc/device-tree/model`)
}

// IsRock3 reports whether the board is a ROCK 3, which carries the
// OLED on a different I2C bus than other boards.
func IsRock3() bool {
	model, err := BoardModel()
	if err != nil {
		return false
	}

	return strings.Contains(model, "ROCK3")
}

// UptimeSeconds returns the system uptime from /proc/uptime.
func UptimeSeconds() (float64, error) {
	raw, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, errors.New().Wrap(ErrCounterRead, err)
	}

	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return 0, errors.New().WithData(ErrCounterRead, "/proc/uptime empty")
	}

	up, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, errors.New().Wrap(ErrCounterRead, err)
	}

	return up, nil
}

// InterfaceList resolves the configured interface list. The single
// entry "auto" discovers all links currently UP.
func InterfaceList(configured []string) ([]string, error) {
	if len(configured) == 0 {
		return nil, nil
	}

	if len(configured) == 1 && configured[0] == "auto" {
		out, err := output(`ip -o link show | awk '{print $2,$3}'`)
		if err != nil {
			return nil, err
		}

		var interfaces []string
		for _, line := range strings.Split(out, "\n") {
			name, status, found := strings.Cut(line, ": ")
			if found && strings.Contains(status, "UP") {
				interfaces = append(interfaces, name)
			}
		}
		sort.Strings(interfaces)

		return interfaces, nil
	}

	return configured, nil
}

// InterfaceCounters reads the cumulative rx/tx byte counters for a
// network interface.
func InterfaceCounters(name string) (rx, tx uint64, err error) {
	rx, err = readUintFile(fmt.Sprintf("/sys/class/net/%s/statistics/rx_bytes", name))
	if err != nil {
		return 0, 0, err
	}

	tx, err = readUintFile(fmt.Sprintf("/sys/class/net/%s/statistics/tx_bytes", name))
	if err != nil {
		return 0, 0, err
	}

	return rx, tx, nil
}

// DiskCounters reads the cumulative sectors-read/sectors-written
// counters for a block device from /sys/block/<disk>/stat.
func DiskCounters(disk string) (rx, tx uint64, err error) {
	raw, ferr := os.ReadFile(fmt.Sprintf("/sys/block/%s/stat", disk))
	if ferr != nil {
		return 0, 0, errors.New().Wrap(ErrCounterRead, ferr)
	}

	fields := strings.Fields(string(raw))
	if len(fields) < 7 {
		return 0, 0, errors.New().WithData(ErrCounterRead, disk)
	}

	rx, err = strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return 0, 0, errors.New().Wrap(ErrCounterRead, err)
	}

	tx, err = strconv.ParseUint(fields[6], 10, 64)
	if err != nil {
		return 0, 0, errors.New().Wrap(ErrCounterRead, err)
	}

	return rx, tx, nil
}

// SectorSize reads the hardware sector size of a block device.
func SectorSize(disk string) (int, error) {
	size, err := readUintFile(fmt.Sprintf("/sys/block/%s/queue/hw_sector_size", disk))
	if err != nil {
		return 0, err
	}

	return int(size), nil
}

func readUintFile(path string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.New().Wrap(ErrCounterRead, err)
	}

	value, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, errors.New().Wrap(ErrCounterRead, err)
	}

	return value, nil
}

