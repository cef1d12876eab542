package hwio

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/logger"
)

// Noctua's PWM white paper specifies 25kHz for 4-pin fans.
const pwmFrequency = 25 * physic.KiloHertz

// FanPin drives the fan output. The HAT's fan input is inverted, so
// the emitted duty is the off ratio. When the pin cannot do hardware
// PWM the fan falls back to plain on/off switching.
type FanPin struct {
	pin   gpio.PinIO
	pwmOK bool
}

func NewFanPin(pinName string) (*FanPin, error) {
	errFactory := errors.New()

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, errFactory.WithData(ErrPinNotFound, pinName)
	}

	f := &FanPin{pin: pin, pwmOK: true}

	// Probe with the fan off. DutyMax is a full off ratio.
	if err := pin.PWM(gpio.DutyMax, pwmFrequency); err != nil {
		logger.Warn().Err(err).Str("pin", pinName).
			Msg("PWM not available, controlling fan on/off")
		f.pwmOK = false
		if err := pin.Out(gpio.High); err != nil {
			return nil, errFactory.Wrap(ErrPinConfig, err)
		}
	}

	return f, nil
}

// SetDutyCycle applies a fan speed in percent.
func (f *FanPin) SetDutyCycle(percent float64) error {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	if !f.pwmOK {
		// Active low: any non-zero speed switches the fan on.
		level := gpio.High
		if percent > 0 {
			level = gpio.Low
		}
		if err := f.pin.Out(level); err != nil {
			return errors.New().Wrap(ErrPinWrite, err)
		}

		return nil
	}

	duty := gpio.Duty(float64(gpio.DutyMax) * (1 - percent/100))
	if err := f.pin.PWM(duty, pwmFrequency); err != nil {
		return errors.New().Wrap(ErrPinWrite, err)
	}

	return nil
}
