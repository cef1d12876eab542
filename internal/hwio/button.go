package hwio

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"codeberg.org/mutker/pentactl/internal/errors"
)

// Button reads the top-board pushbutton. The line idles high and is
// pulled low while the button is held.
type Button struct {
	pin gpio.PinIO
}

func NewButton(pinName string) (*Button, error) {
	errFactory := errors.New()

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, errFactory.WithData(ErrPinNotFound, pinName)
	}

	if err := pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, errFactory.Wrap(ErrPinConfig, err)
	}

	return &Button{pin: pin}, nil
}

// Read reports whether the line is high. The line idles high and is
// pulled low while the button is held, so true means released.
func (b *Button) Read() (bool, error) {
	return b.pin.Read() == gpio.High, nil
}
