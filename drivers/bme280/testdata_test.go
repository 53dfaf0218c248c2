package bme280

// Datasheet example coefficients (BME280 datasheet, 4.2.3 / Bosch API
// examples) and their register image.
var refCalib = Calibration{
	T1: 27504, T2: 26435, T3: -1000,
	P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140, P6: -7, P7: 15500, P8: -14600, P9: 6000,
	H1: 75, H2: 362, H3: 0, H4: 313, H5: 50, H6: 30,
}

var refCalibBytes = []byte{
	// 0x88..0xA1
	0x70, 0x6B, 0x43, 0x67, 0x18, 0xFC, 0x7D, 0x8E, 0x43, 0xD6, 0xD0, 0x0B, 0x27,
	0x0B, 0x8C, 0x00, 0xF9, 0xFF, 0x8C, 0x3C, 0xF8, 0xC6, 0x70, 0x17, 0x00, 0x4B,
	// 0xE1..0xF0
	0x6A, 0x01, 0x00, 0x13, 0x29, 0x03, 0x1E, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Raw sample matching the datasheet example: T 519888, P 415148, H 30000.
var refBurst = []byte{0x65, 0x5A, 0xC0, 0x7E, 0xED, 0x00, 0x75, 0x30}

const (
	refFine        = 128422
	refTemperature = 2508     // 25.08 °C
	refPressure    = 25767233 // 100653.25 Pa
	refHumidity    = 56317    // 54.997 %RH
)
