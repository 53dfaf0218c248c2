//go:build !rp2040 && !rp2350

package platform

import (
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// periph's i2c.Bus has the same Tx shape as drivers.I2C.
var _ drivers.I2C = i2c.Bus(nil)

// OpenPeriph initialises the periph host drivers and opens each bus by its
// i2creg name ("" for the first bus, "1", "/dev/i2c-1", ...).
func OpenPeriph(names map[string]string) (*Factory, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	f := &Factory{buses: map[string]drivers.I2C{}}
	for id, name := range names {
		b, err := i2creg.Open(name)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("open %s (%q): %w", id, name, err), f.Close())
		}
		lg.Infof("%s: periph bus %s", id, b)
		f.buses[id] = b
	}
	return f, nil
}
