package sysinfo

import "codeberg.org/mutker/pentactl/internal/errors"

const (
	ErrCommandFailed   = errors.ErrorCode("sysinfo_command_failed")
	ErrCounterRead     = errors.ErrorCode("sysinfo_counter_read_failed")
	ErrTemperatureRead = errors.ErrorCode("sysinfo_temperature_read_failed")
)
