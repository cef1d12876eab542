// Package hwio wraps the HAT's physical devices behind the small
// interfaces the control loops consume: the top-board button pin, the
// fan PWM output and the SSD1306 OLED.
package hwio

import (
	"os"

	"periph.io/x/host/v3"

	"codeberg.org/mutker/pentactl/internal/errors"
)

// Board wiring defaults, overridable through the environment for
// boards with a different pinout.
const (
	defaultButtonPin = "11"
	defaultFanPin    = "13"
)

// Init loads the periph host drivers. Safe to call more than once.
func Init() error {
	if _, err := host.Init(); err != nil {
		return errors.New().Wrap(ErrHostInit, err)
	}

	return nil
}

// ButtonPinName returns the GPIO pin the top-board button is wired to.
func ButtonPinName() string {
	if v := os.Getenv("PENTACTL_BUTTON_PIN"); v != "" {
		return v
	}

	return defaultButtonPin
}

// FanPinName returns the GPIO pin driving the fan.
func FanPinName() string {
	if v := os.Getenv("PENTACTL_FAN_PIN"); v != "" {
		return v
	}

	return defaultFanPin
}
