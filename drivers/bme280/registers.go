package bme280

// I2C addresses, selected by the SDO pin.
const (
	AddressPrimary   = 0x76 // SDO to GND
	AddressSecondary = 0x77 // SDO to VDDIO
)

// ChipIDBME280 is the value of the id register on a BME280.
const ChipIDBME280 = 0x60

// Register map.
const (
	regCalib00  = 0x88 // calib00..calib25
	regID       = 0xD0
	regReset    = 0xE0
	regCalib26  = 0xE1 // calib26..calib41
	regCtrlHum  = 0xF2
	regStatus   = 0xF3
	regCtrlMeas = 0xF4
	regConfig   = 0xF5
	regPress    = 0xF7 // press_msb; start of the 8-byte data burst
	regTemp     = 0xFA
	regHum      = 0xFD
)

// Fixed measurement configuration: x1 oversampling on all three channels,
// forced mode.
const (
	ctrlHumOSx1     = 0x01       // osrs_h = 001
	ctrlMeasForced1 = 0b00100101 // osrs_t = 001, osrs_p = 001, mode = 01
	resetWord       = 0xB6
	statusMeasuring = 0x08
)

// Block sizes.
const (
	calib00Len = 26
	calib26Len = 16
	burstLen   = 8
)
