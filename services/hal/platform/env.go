//go:build !rp2040 && !rp2350

package platform

import (
	"bme280-go/drivers/bme280"

	"periph.io/x/conn/v3/physic"
)

// Env converts a compensated measurement to periph units.
func Env(m bme280.Measurement) physic.Env {
	return physic.Env{
		Temperature: physic.Temperature(m.Temperature)*10*physic.MilliCelsius + physic.ZeroCelsius,
		// 1/256 Pa = 3906.25 µPa.
		Pressure: physic.Pressure(m.Pressure) * 15625 * physic.MicroPascal / 4,
		// RelativeHumidity is int32; 100 %RH in 1/1024 units overflows it unless widened.
		Humidity: physic.RelativeHumidity(int64(m.Humidity) * int64(physic.PercentRH) / 1024),
	}
}
