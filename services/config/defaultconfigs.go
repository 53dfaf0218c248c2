package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Pico: BME280 on i2c0 (GP4/GP5), SDO low.
const cfgPico = `{
  "hal": {
    "version": 1,
    "buses": [
      {"id": "i2c0", "type": "i2c", "impl": "tinygo", "freq_hz": 400000}
    ],
    "devices": [
      {
        "id": "bme0",
        "type": "bme280",
        "bus_ref": {"id": "i2c0", "type": "i2c"},
        "params": {"addr": 118, "period_ms": 2000}
      }
    ]
  },
  "heartbeat": {
    "interval": 30
  }
}`

// Linux host (Raspberry Pi header bus 1), SDO high.
const cfgHost = `{
  "hal": {
    "version": 1,
    "buses": [
      {"id": "i2c1", "type": "i2c"}
    ],
    "devices": [
      {
        "id": "bme0",
        "type": "bme280",
        "bus_ref": {"id": "i2c1", "type": "i2c"},
        "params": {"addr": 119, "period_ms": 5000}
      }
    ]
  },
  "heartbeat": {
    "interval": 10
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
