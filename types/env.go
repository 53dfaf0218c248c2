package types

// ------------------------
// Temperature, pressure & humidity
// ------------------------

// SensorInfo is the Info.Detail of every env capability.
type SensorInfo struct {
	Sensor string `json:"sensor"` // "bme280"
	Addr   uint16 `json:"addr"`   // I2C address
	Bus    string `json:"bus"`    // "i2c0", ...
}

type TemperatureValue struct {
	// Hundredths of °C as compensated (2508 => 25.08°C).
	CentiC int32 `json:"centi_c"`
	// Tenths of °C, rounded.
	DeciC int16 `json:"deci_c"`
	TS    int64 `json:"ts_ms"`
}

type PressureValue struct {
	// Pa in Q24.8 as compensated (25767233 => 100653.25 Pa).
	PaX256 uint32 `json:"pa_x256"`
	// Tenths of hPa, rounded.
	DeciHPa uint32 `json:"deci_hpa"`
	TS      int64  `json:"ts_ms"`
}

type HumidityValue struct {
	// %RH in Q22.10 as compensated (56317 => 55.00 %RH).
	RHx1024 uint32 `json:"rh_x1024"`
	// Hundredths of %RH (0..10000 for 0..100.00%).
	RHx100 uint16 `json:"rh_x100"`
	TS     int64  `json:"ts_ms"`
}

// BME280Params is the params object of a "bme280" HAL device.
type BME280Params struct {
	Addr     uint16 `json:"addr,omitempty"`      // 0x76 (118) if zero
	PeriodMS int    `json:"period_ms,omitempty"` // sampling period, 2000 if zero
}

// ChipIDReply answers the "chip_id" control.
type ChipIDReply struct {
	ChipID uint8 `json:"chip_id"`
	BME280 bool  `json:"bme280"` // chip id matches 0x60
}
