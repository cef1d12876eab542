package hwio

import (
	"image"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"codeberg.org/mutker/pentactl/internal/display"
	"codeberg.org/mutker/pentactl/internal/errors"
)

const (
	oledWidth  = 128
	oledHeight = 32
)

// OLED is the 128x32 SSD1306 on the top board. Regions position text
// by its top-left corner, matching the page layouts.
type OLED struct {
	bus  i2c.BusCloser
	dev  *ssd1306.Dev
	face font.Face
}

// NewOLED opens the I2C bus and initializes the controller. A missing
// bus or device means the top board is absent; callers treat that as a
// headless system, not a fatal error.
func NewOLED(busNumber int, rotate bool) (*OLED, error) {
	errFactory := errors.New()

	bus, err := i2creg.Open(strconv.Itoa(busNumber))
	if err != nil {
		return nil, errFactory.Wrap(ErrDisplayInit, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{
		W:       oledWidth,
		H:       oledHeight,
		Rotated: rotate,
	})
	if err != nil {
		_ = bus.Close()

		return nil, errFactory.Wrap(ErrDisplayInit, err)
	}

	return &OLED{
		bus:  bus,
		dev:  dev,
		face: basicfont.Face7x13,
	}, nil
}

// Draw renders the regions into a fresh frame and pushes it whole.
func (o *OLED) Draw(regions []display.Region) error {
	img := image1bit.NewVerticalLSB(o.dev.Bounds())
	ascent := o.face.Metrics().Ascent.Ceil()

	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: o.face,
	}
	for _, r := range regions {
		drawer.Dot = fixed.P(r.X, r.Y+ascent)
		drawer.DrawString(r.Text)
	}

	if err := o.dev.Draw(o.dev.Bounds(), img, image.Point{}); err != nil {
		return errors.New().Wrap(ErrDisplayIO, err)
	}

	return nil
}

// Clear blanks the display.
func (o *OLED) Clear() error {
	img := image1bit.NewVerticalLSB(o.dev.Bounds())
	if err := o.dev.Draw(o.dev.Bounds(), img, image.Point{}); err != nil {
		return errors.New().Wrap(ErrDisplayIO, err)
	}

	return nil
}

// Close releases the I2C bus.
func (o *OLED) Close() error {
	if err := o.bus.Close(); err != nil {
		return errors.New().Wrap(ErrDisplayIO, err)
	}

	return nil
}
