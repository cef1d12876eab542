package hwio

import "codeberg.org/mutker/pentactl/internal/errors"

const (
	ErrHostInit    = errors.ErrorCode("hwio_host_init_failed")
	ErrPinNotFound = errors.ErrorCode("hwio_pin_not_found")
	ErrPinConfig   = errors.ErrorCode("hwio_pin_config_failed")
	ErrPinWrite    = errors.ErrorCode("hwio_pin_write_failed")
	ErrDisplayInit = errors.ErrorCode("hwio_display_init_failed")
	ErrDisplayIO   = errors.ErrorCode("hwio_display_io_failed")
)
