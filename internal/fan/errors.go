package fan

import "codeberg.org/mutker/pentactl/internal/errors"

const (
	ErrTemperatureRead = errors.ErrorCode("fan_temperature_read_failed")
	ErrPWMWrite        = errors.ErrorCode("fan_pwm_write_failed")
)
