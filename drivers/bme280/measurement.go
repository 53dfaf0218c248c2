package bme280

import "strconv"

// RawMeasurement holds uncompensated ADC counts. Pressure and temperature
// are 20-bit, humidity is 16-bit.
type RawMeasurement struct {
	Pressure    int32
	Temperature int32
	Humidity    uint16
}

// UnpackRaw decodes the 8-byte burst starting at press_msb (0xF7):
//
//	press_msb press_lsb press_xlsb temp_msb temp_lsb temp_xlsb hum_msb hum_lsb
//
// The low nibble of each xlsb byte is dropped. b must hold at least 8 bytes.
func UnpackRaw(b []byte) RawMeasurement {
	_ = b[7]
	return RawMeasurement{
		Pressure:    int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4,
		Temperature: int32(b[3])<<12 | int32(b[4])<<4 | int32(b[5])>>4,
		Humidity:    uint16(b[6])<<8 | uint16(b[7]),
	}
}

// Measurement is one compensated sample in the sensor's native fixed-point
// units.
type Measurement struct {
	Temperature int32  // 0.01 °C
	Pressure    uint32 // 1/256 Pa
	Humidity    uint32 // 1/1024 %RH
}

// Celsius returns the temperature in °C.
func (m Measurement) Celsius() float64 { return float64(m.Temperature) / 100 }

// Pascal returns the pressure in Pa.
func (m Measurement) Pascal() float64 { return float64(m.Pressure) / 256 }

// HectoPascal returns the pressure in hPa.
func (m Measurement) HectoPascal() float64 { return float64(m.Pressure) / 25600 }

// RelHumidity returns the relative humidity in percent.
func (m Measurement) RelHumidity() float64 { return float64(m.Humidity) / 1024 }

// Fixed-point helpers (no float on the hot path).

// DeciCelsius returns tenths of °C, rounded half away from zero.
func (m Measurement) DeciCelsius() int32 {
	if m.Temperature < 0 {
		return (m.Temperature - 5) / 10
	}
	return (m.Temperature + 5) / 10
}

// DeciHectoPascal returns tenths of hPa (10 Pa), rounded.
func (m Measurement) DeciHectoPascal() uint32 {
	return uint32((uint64(m.Pressure) + 1280) / 2560)
}

// RHx100 returns hundredths of %RH, rounded.
func (m Measurement) RHx100() uint32 {
	return (m.Humidity*100 + 512) / 1024
}

func (m Measurement) String() string {
	return "temperature: " + strconv.FormatFloat(m.Celsius(), 'f', 2, 64) +
		"°C, pressure: " + strconv.FormatFloat(m.HectoPascal(), 'f', 2, 64) +
		" hPa, humidity: " + strconv.FormatFloat(m.RelHumidity(), 'f', 2, 64) + "%"
}
