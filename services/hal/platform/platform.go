// Package platform provides the I²C bus factories handed to hal.Run: Linux
// backends (periph, smbus, d2r2/go-i2c) on hosts and machine.I2C on RP2.
package platform

import (
	"io"
	"sort"

	"go.uber.org/multierr"
	"tinygo.org/x/drivers"
)

// Factory maps bus ids ("i2c0", ...) to opened buses.
type Factory struct {
	buses map[string]drivers.I2C
}

// NewFactory wraps already opened buses.
func NewFactory(buses map[string]drivers.I2C) *Factory {
	f := &Factory{buses: make(map[string]drivers.I2C, len(buses))}
	for id, b := range buses {
		f.buses[id] = b
	}
	return f
}

func (f *Factory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// IDs returns the configured bus ids in order.
func (f *Factory) IDs() []string {
	ids := make([]string, 0, len(f.buses))
	for id := range f.buses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every bus that can be closed and returns all failures.
func (f *Factory) Close() error {
	var err error
	for _, id := range f.IDs() {
		if c, ok := f.buses[id].(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
