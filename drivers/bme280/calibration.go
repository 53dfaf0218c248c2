package bme280

import "errors"

// CalibrationSize is the length of the calibration block: 26 bytes from
// 0x88 followed by 16 bytes from 0xE1.
const CalibrationSize = calib00Len + calib26Len

// ErrInvalidCalibrationLength is returned by DecodeCalibration when the block
// is not exactly CalibrationSize bytes.
var ErrInvalidCalibrationLength = errors.New("bme280: calibration block is not 42 bytes")

// Calibration holds the factory trimming coefficients. It is immutable once
// decoded; the fine temperature is not part of it (see FineTemp).
type Calibration struct {
	T1 uint16
	T2 int16
	T3 int16

	P1 uint16
	P2 int16
	P3 int16
	P4 int16
	P5 int16
	P6 int16
	P7 int16
	P8 int16
	P9 int16

	H1 uint8
	H2 int16
	H3 uint8
	H4 int16
	H5 int16
	H6 int8
}

// DecodeCalibration parses the 42-byte calibration block. No coefficient is
// read unless len(b) == CalibrationSize.
func DecodeCalibration(b []byte) (Calibration, error) {
	if len(b) != CalibrationSize {
		return Calibration{}, ErrInvalidCalibrationLength
	}
	return Calibration{
		T1: le16(b, 0),
		T2: int16(le16(b, 2)),
		T3: int16(le16(b, 4)),

		P1: le16(b, 6),
		P2: int16(le16(b, 8)),
		P3: int16(le16(b, 10)),
		P4: int16(le16(b, 12)),
		P5: int16(le16(b, 14)),
		P6: int16(le16(b, 16)),
		P7: int16(le16(b, 18)),
		P8: int16(le16(b, 20)),
		P9: int16(le16(b, 22)),

		H1: b[25],
		H2: int16(le16(b, 26)),
		H3: b[28],
		// 0xE4[7:0] / 0xE5[3:0] and 0xE5[7:4] / 0xE6[7:0].
		H4: (int16(b[29]) << 4) | (int16(b[30]) & 0x0F),
		H5: (int16(b[30]) >> 4) | (int16(b[31]) << 4),
		H6: int8(b[32]),
	}, nil
}

// Encode lays the coefficients out the way DecodeCalibration reads them.
// H4 and H5 only round-trip within their 12-bit range [0, 4095]. The
// reserved bytes (24 and 33..41) are zero.
func (c Calibration) Encode() [CalibrationSize]byte {
	var b [CalibrationSize]byte
	put16(b[:], 0, c.T1)
	put16(b[:], 2, uint16(c.T2))
	put16(b[:], 4, uint16(c.T3))

	put16(b[:], 6, c.P1)
	for i, p := range [...]int16{c.P2, c.P3, c.P4, c.P5, c.P6, c.P7, c.P8, c.P9} {
		put16(b[:], 8+2*i, uint16(p))
	}

	b[25] = c.H1
	put16(b[:], 26, uint16(c.H2))
	b[28] = c.H3
	b[29] = byte(c.H4 >> 4)
	b[30] = byte(c.H4&0x0F) | byte(c.H5&0x0F)<<4
	b[31] = byte(c.H5 >> 4)
	b[32] = byte(c.H6)
	return b
}

// Little-endian 16-bit helpers (LSB first, as in the register map).

func le16(b []byte, i int) uint16 { return uint16(b[i]) | uint16(b[i+1])<<8 }

func put16(b []byte, i int, v uint16) {
	b[i] = byte(v)
	b[i+1] = byte(v >> 8)
}
