package types

// HAL configuration supplied on topic "config/hal".

type HALConfig struct {
	Version int      `json:"version"`
	Buses   []BusCfg `json:"buses,omitempty"`
	Devices []Device `json:"devices"`
}

type BusCfg struct {
	ID     string `json:"id"`             // "i2c0"
	Type   string `json:"type"`           // "i2c"
	Impl   string `json:"impl,omitempty"` // informational: "periph", "smbus", "d2r2", "tinygo"
	FreqHz int    `json:"freq_hz,omitempty"`
}

type Device struct {
	ID     string `json:"id"`   // "bme0"
	Type   string `json:"type"` // "bme280"
	BusRef BusRef `json:"bus_ref"`
	Params any    `json:"params,omitempty"` // device-specific shape
}

type BusRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
