package platform

import (
	"errors"
	"testing"
)

type fakeD2R2 struct {
	addr    uint8
	written [][]byte
	regs    [256]byte
	closed  bool
}

func (f *fakeD2R2) WriteBytes(buf []byte) (int, error) {
	f.written = append(f.written, append([]byte(nil), buf...))
	return len(buf), nil
}

func (f *fakeD2R2) ReadBytes(buf []byte) (int, error) { return copy(buf, f.regs[:]), nil }

func (f *fakeD2R2) ReadRegBytes(reg byte, n int) ([]byte, int, error) {
	out := make([]byte, n)
	copy(out, f.regs[reg:])
	return out, n, nil
}

func (f *fakeD2R2) Close() error { f.closed = true; return nil }

func newTestD2R2() (*d2r2I2C, map[uint8]*fakeD2R2) {
	opened := map[uint8]*fakeD2R2{}
	b := newD2R2I2C(1)
	b.open = func(addr uint8, bus int) (d2r2Conn, error) {
		if addr == 0x10 {
			return nil, errors.New("no device")
		}
		c := &fakeD2R2{addr: addr}
		c.regs[0xD0] = addr
		opened[addr] = c
		return c, nil
	}
	return b, opened
}

func TestD2R2I2C_OpensPerAddress(t *testing.T) {
	b, opened := newTestD2R2()

	r := make([]byte, 1)
	for _, addr := range []uint16{0x76, 0x77, 0x76} {
		if err := b.Tx(addr, []byte{0xD0}, r); err != nil {
			t.Fatalf("Tx(%#x): %v", addr, err)
		}
		if r[0] != uint8(addr) {
			t.Fatalf("read from %#x = %#x", addr, r[0])
		}
	}
	if len(opened) != 2 {
		t.Fatalf("opened %d handles, want 2", len(opened))
	}

	if err := b.Tx(0x76, []byte{0xF4, 0x25}, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if w := opened[0x76].written; len(w) != 1 || w[0][0] != 0xF4 || w[0][1] != 0x25 {
		t.Fatalf("written = %v", w)
	}

	if err := b.Tx(0x10, []byte{0xD0}, r); err == nil {
		t.Fatal("expected open failure")
	}
	if err := b.Tx(0x76, []byte{1, 2}, r); !errors.Is(err, ErrUnsupportedTx) {
		t.Fatalf("write+read err = %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !opened[0x76].closed || !opened[0x77].closed || len(b.conns) != 0 {
		t.Fatal("handles not closed")
	}
}

func TestOpenD2R2(t *testing.T) {
	f := OpenD2R2(map[string]int{"i2c1": 1})
	b, ok := f.ByID("i2c1")
	if !ok {
		t.Fatal("i2c1 missing")
	}
	if s := b.(*d2r2I2C).String(); s != "d2r2:/dev/i2c-1" {
		t.Fatalf("String = %q", s)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
