// Package bme280 provides a driver for the Bosch BME280 combined
// temperature, pressure and humidity sensor on I2C.
//
// The factory calibration is read and decoded once by New; a Device only
// exists with a valid calibration. Each measurement is a forced-mode cycle
// with x1 oversampling on all channels:
//
//	d, err := bme280.New(bus, bme280.Config{})
//	m, err := d.Measure()    // trigger + burst read + compensation
//
// Measure performs no sleep. The sensor needs d.MeasureTime() after the
// trigger before the data registers hold the new sample; callers that want to
// wait use Trigger and Collect instead:
//
//	d.Trigger()
//	time.Sleep(d.MeasureTime())
//	m, err := d.Collect()
//
// The compensation functions are pure and exported so raw samples can be
// converted without a device. Temperature compensation returns the fine
// temperature that pressure and humidity compensation take as an argument.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
package bme280

import (
	"time"

	"tinygo.org/x/drivers"
)

// TransportError wraps an I2C failure with the operation that hit it.
type TransportError struct {
	Op  string // "read" or "write"
	Reg uint8
	Err error
}

func (e *TransportError) Error() string {
	return "bme280: " + e.Op + " reg 0x" + hex8(e.Reg) + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to AddressPrimary (0x76) if zero.
	Address uint16
}

// Device is a calibrated BME280. It is not safe for concurrent use.
type Device struct {
	bus    drivers.I2C
	addr   uint16
	chipID uint8
	calib  Calibration

	// Fixed buffers to avoid per-call heap allocations.
	w      [2]byte
	buf    [burstLen]byte
	calBuf [CalibrationSize]byte
}

// New reads the chip id and the calibration block and returns a ready
// Device. Any bus error or an undecodable calibration aborts construction.
func New(bus drivers.I2C, cfg Config) (*Device, error) {
	d := &Device{bus: bus, addr: cfg.Address}
	if d.addr == 0 {
		d.addr = AddressPrimary
	}

	if err := d.readReg(regID, d.buf[:1]); err != nil {
		return nil, err
	}
	d.chipID = d.buf[0]

	if err := d.readReg(regCalib00, d.calBuf[:calib00Len]); err != nil {
		return nil, err
	}
	if err := d.readReg(regCalib26, d.calBuf[calib00Len:]); err != nil {
		return nil, err
	}
	c, err := DecodeCalibration(d.calBuf[:])
	if err != nil {
		return nil, err
	}
	d.calib = c
	return d, nil
}

// Introspection.
func (d *Device) Address() uint16          { return d.addr }
func (d *Device) ChipID() uint8            { return d.chipID }
func (d *Device) Calibration() Calibration { return d.calib }

// Measure runs one forced-mode cycle: Trigger followed immediately by
// Collect. The first bus error is returned as is.
func (d *Device) Measure() (Measurement, error) {
	if err := d.Trigger(); err != nil {
		return Measurement{}, err
	}
	return d.Collect()
}

// Trigger writes ctrl_hum then ctrl_meas, starting a forced-mode conversion.
// ctrl_hum only takes effect after a ctrl_meas write, hence the order.
func (d *Device) Trigger() error {
	if err := d.writeReg(regCtrlHum, ctrlHumOSx1); err != nil {
		return err
	}
	return d.writeReg(regCtrlMeas, ctrlMeasForced1)
}

// Collect burst-reads the data registers and compensates them.
func (d *Device) Collect() (Measurement, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return Measurement{}, err
	}
	return Compensate(d.calib, raw), nil
}

// ReadRaw burst-reads the data registers without compensation.
func (d *Device) ReadRaw() (RawMeasurement, error) {
	if err := d.readReg(regPress, d.buf[:]); err != nil {
		return RawMeasurement{}, err
	}
	return UnpackRaw(d.buf[:]), nil
}

// Busy reports whether a conversion is running (status.measuring).
func (d *Device) Busy() (bool, error) {
	if err := d.readReg(regStatus, d.buf[:1]); err != nil {
		return false, err
	}
	return d.buf[0]&statusMeasuring != 0, nil
}

// Reset issues a soft reset. The device needs ~2ms before the next access
// and returns to sleep mode; the calibration is unchanged.
func (d *Device) Reset() error {
	return d.writeReg(regReset, resetWord)
}

// MeasureTime is the typical conversion time for the fixed configuration:
// 1 ms + 2 ms (T) + 2.5 ms (P) + 2.5 ms (H), rounded up.
func (d *Device) MeasureTime() time.Duration {
	return 8 * time.Millisecond
}

func (d *Device) readReg(reg uint8, r []byte) error {
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], r); err != nil {
		return &TransportError{Op: "read", Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) writeReg(reg, val uint8) error {
	d.w[0] = reg
	d.w[1] = val
	if err := d.bus.Tx(d.addr, d.w[:2], nil); err != nil {
		return &TransportError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

const hexDigits = "0123456789abcdef"

func hex8(v uint8) string {
	return string([]byte{hexDigits[v>>4], hexDigits[v&0x0F]})
}
