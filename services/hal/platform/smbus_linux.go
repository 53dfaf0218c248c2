package platform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-daq/smbus"
	"go.uber.org/multierr"
	"tinygo.org/x/drivers"
)

// ErrUnsupportedTx is returned for transfers a register-oriented backend
// cannot express.
var ErrUnsupportedTx = errors.New("platform: unsupported i2c transfer")

// smbusConn is the part of *smbus.Conn the adapter uses.
type smbusConn interface {
	ReadBlockData(addr, reg uint8, buf []byte) error
	WriteReg(addr, reg, v uint8) error
	WriteBlockData(addr, reg uint8, buf []byte) error
	Close() error
}

// smbusI2C maps register transfers onto SMBus block and byte commands.
type smbusI2C struct {
	mu   sync.Mutex
	bus  int
	conn smbusConn
}

var _ drivers.I2C = (*smbusI2C)(nil)

func (s *smbusI2C) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := uint8(addr)
	switch {
	case len(w) == 1 && len(r) > 0:
		return s.conn.ReadBlockData(a, w[0], r)
	case len(w) == 2 && len(r) == 0:
		return s.conn.WriteReg(a, w[0], w[1])
	case len(w) > 2 && len(r) == 0:
		return s.conn.WriteBlockData(a, w[0], w[1:])
	}
	return ErrUnsupportedTx
}

func (s *smbusI2C) Close() error { return s.conn.Close() }

func (s *smbusI2C) String() string { return fmt.Sprintf("smbus:/dev/i2c-%d", s.bus) }

// OpenSMBus opens /dev/i2c-N for each bus id.
func OpenSMBus(buses map[string]int) (*Factory, error) {
	f := &Factory{buses: map[string]drivers.I2C{}}
	for id, n := range buses {
		c, err := smbus.OpenFile(n)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("open %s: %w", id, err), f.Close())
		}
		b := &smbusI2C{bus: n, conn: c}
		lg.Infof("%s: %s", id, b)
		f.buses[id] = b
	}
	return f, nil
}
