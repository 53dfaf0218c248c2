package platform

import (
	"fmt"
	"sync"

	i2c "github.com/d2r2/go-i2c"
	logger "github.com/d2r2/go-logger"
	"go.uber.org/multierr"
	"tinygo.org/x/drivers"
)

// d2r2Conn is the part of *i2c.I2C the adapter uses.
type d2r2Conn interface {
	WriteBytes(buf []byte) (int, error)
	ReadBytes(buf []byte) (int, error)
	ReadRegBytes(reg byte, n int) ([]byte, int, error)
	Close() error
}

// d2r2I2C opens one go-i2c handle per device address on first use, since a
// handle is bound to a single address.
type d2r2I2C struct {
	mu    sync.Mutex
	bus   int
	open  func(addr uint8, bus int) (d2r2Conn, error)
	conns map[uint16]d2r2Conn
}

var _ drivers.I2C = (*d2r2I2C)(nil)

func newD2R2I2C(bus int) *d2r2I2C {
	return &d2r2I2C{
		bus: bus,
		open: func(addr uint8, bus int) (d2r2Conn, error) {
			return i2c.NewI2C(addr, bus)
		},
		conns: map[uint16]d2r2Conn{},
	}
}

// Tx writes w, then reads r. The register read is two transfers (write
// pointer, read) rather than one repeated-start transaction.
func (d *d2r2I2C) Tx(addr uint16, w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.conn(addr)
	if err != nil {
		return err
	}
	switch {
	case len(r) == 0:
		_, err = c.WriteBytes(w)
		return err
	case len(w) == 1:
		buf, _, err := c.ReadRegBytes(w[0], len(r))
		if err != nil {
			return err
		}
		copy(r, buf)
		return nil
	case len(w) == 0:
		_, err = c.ReadBytes(r)
		return err
	}
	return ErrUnsupportedTx
}

func (d *d2r2I2C) conn(addr uint16) (d2r2Conn, error) {
	if c, ok := d.conns[addr]; ok {
		return c, nil
	}
	c, err := d.open(uint8(addr), d.bus)
	if err != nil {
		return nil, err
	}
	d.conns[addr] = c
	return c, nil
}

func (d *d2r2I2C) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	for addr, c := range d.conns {
		err = multierr.Append(err, c.Close())
		delete(d.conns, addr)
	}
	return err
}

func (d *d2r2I2C) String() string { return fmt.Sprintf("d2r2:/dev/i2c-%d", d.bus) }

// OpenD2R2 prepares go-i2c backed buses. Device handles are opened lazily so
// this never fails; errors surface on the first transfer.
func OpenD2R2(buses map[string]int) *Factory {
	// go-i2c logs every transfer at debug level.
	_ = logger.ChangePackageLogLevel("i2c", logger.InfoLevel)

	f := &Factory{buses: map[string]drivers.I2C{}}
	for id, n := range buses {
		b := newD2R2I2C(n)
		lg.Infof("%s: %s", id, b)
		f.buses[id] = b
	}
	return f
}
