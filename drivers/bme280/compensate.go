package bme280

// Compensation formulas from the BME280 datasheet (rev 1.6, section 4.2.3),
// 32-bit temperature/humidity and 64-bit pressure variants. Integer widths,
// shifts and truncating divisions are part of the contract: results are
// bit-exact with the Bosch reference code.

// FineTemp is the "t_fine" carry-over produced by temperature compensation
// and consumed by pressure and humidity compensation of the same cycle.
type FineTemp int32

// Humidity clamp bounds.
const (
	humidityVarMax = 419430400 // 100 %RH in Q22.10 << 12
	HumidityMax    = 102400    // 100 %RH in 1/1024 %RH
)

// CompensateTemperature converts a 20-bit raw temperature into hundredths of
// a degree Celsius (5123 = 51.23 °C) and returns the fine temperature that
// CompensatePressure and CompensateHumidity need for the same measurement.
func CompensateTemperature(c Calibration, raw int32) (int32, FineTemp) {
	t1 := int32(c.T1)
	t2 := int32(c.T2)
	t3 := int32(c.T3)

	var1 := (((raw >> 3) - (t1 << 1)) * t2) >> 11
	d := (raw >> 4) - t1
	var2 := (((d * d) >> 12) * t3) >> 14

	fine := var1 + var2
	return (fine*5 + 128) >> 8, FineTemp(fine)
}

// CompensatePressure converts a 20-bit raw pressure into Pa in Q24.8
// (24674867 = 24674867/256 = 96386.2 Pa). It returns 0 when the calibration
// makes the divisor vanish.
func CompensatePressure(c Calibration, fine FineTemp, raw int32) uint32 {
	var1 := int64(fine) - 128000
	var2 := var1 * var1 * int64(c.P6)
	var2 += (var1 * int64(c.P5)) << 17
	var2 += int64(c.P4) << 35
	var1 = ((var1 * var1 * int64(c.P3)) >> 8) + ((var1 * int64(c.P2)) << 12)
	var1 = (((int64(1) << 47) + var1) * int64(c.P1)) >> 33
	if var1 == 0 {
		return 0
	}

	p := 1048576 - int64(raw)
	p = (((p << 31) - var2) * 3125) / var1
	var1 = (int64(c.P9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.P8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + (int64(c.P7) << 4)
	return uint32(p)
}

// CompensateHumidity converts a 16-bit raw humidity into %RH in Q22.10
// (47445 = 47445/1024 = 46.333 %RH). The result is always within
// [0, HumidityMax].
func CompensateHumidity(c Calibration, fine FineTemp, raw uint16) uint32 {
	var1 := int32(fine) - 76800
	var2 := int32(raw) * 16384
	var3 := int32(c.H4) * 1048576
	var4 := int32(c.H5) * var1
	var5 := (((var2 - var3) - var4) + 16384) / 32768
	var2 = (var1 * int32(c.H6)) / 1024
	var3 = (var1 * int32(c.H3)) / 2048
	var4 = ((var2 * (var3 + 32768)) / 1024) + 2097152
	var2 = ((var4 * int32(c.H2)) + 8192) / 16384
	var3 = var5 * var2
	var4 = ((var3 / 32768) * (var3 / 32768)) / 128
	var5 = var3 - ((var4 * int32(c.H1)) / 16)

	if var5 < 0 {
		var5 = 0
	}
	if var5 > humidityVarMax {
		var5 = humidityVarMax
	}
	h := var5 / 4096
	if h > HumidityMax {
		h = HumidityMax
	}
	return uint32(h)
}

// Compensate runs the three formulas in order for one raw sample.
func Compensate(c Calibration, raw RawMeasurement) Measurement {
	t, fine := CompensateTemperature(c, raw.Temperature)
	return Measurement{
		Temperature: t,
		Pressure:    CompensatePressure(c, fine, raw.Pressure),
		Humidity:    CompensateHumidity(c, fine, raw.Humidity),
	}
}
