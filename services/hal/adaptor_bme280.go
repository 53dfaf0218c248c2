package hal

import (
	"context"
	"sync/atomic"
	"time"

	"bme280-go/drivers/bme280"
	"bme280-go/errcode"
	"bme280-go/types"
	"bme280-go/x/mathx"

	"tinygo.org/x/drivers"
)

func init() { RegisterBuilder("bme280", BuilderFunc(buildBME280)) }

const defaultBME280Period = 2 * time.Second

func buildBME280(in BuildInput) (BuildOutput, error) {
	if in.BusRef.Type != "i2c" || in.BusRef.ID == "" {
		return BuildOutput{}, errcode.InvalidParams
	}
	i2c, ok := in.Buses.ByID(in.BusRef.ID)
	if !ok {
		return BuildOutput{}, errcode.UnknownBus
	}
	var p types.BME280Params
	if err := decodeJSON(in.Params, &p); err != nil {
		return BuildOutput{}, errcode.InvalidParams
	}
	every := defaultBME280Period
	if p.PeriodMS > 0 {
		every = time.Duration(clampPeriodMS(p.PeriodMS)) * time.Millisecond
	}
	return BuildOutput{
		Adaptor:     NewBME280Adaptor(in.DeviceID, in.BusRef.ID, i2c, p.Addr),
		BusID:       in.BusRef.ID,
		SampleEvery: every,
	}, nil
}

type bme280Adaptor struct {
	id    string
	busID string
	bus   drivers.I2C
	addr  uint16

	// Set once by the worker goroutine; Control reads it from the HAL loop.
	dev atomic.Pointer[bme280.Device]
}

// NewBME280Adaptor returns an adaptor that opens the device on its first
// Trigger, so that construction never touches the bus.
func NewBME280Adaptor(id, busID string, bus drivers.I2C, addr uint16) Adaptor {
	if addr == 0 {
		addr = bme280.AddressPrimary
	}
	return &bme280Adaptor{id: id, busID: busID, bus: bus, addr: addr}
}

func (a *bme280Adaptor) ID() string { return a.id }

func (a *bme280Adaptor) Capabilities() []CapInfo {
	detail := types.SensorInfo{Sensor: "bme280", Addr: a.addr, Bus: a.busID}
	return []CapInfo{
		{Kind: types.KindTemperature, Info: types.Info{SchemaVersion: 1, Driver: "bme280", Unit: "C", Detail: detail}},
		{Kind: types.KindPressure, Info: types.Info{SchemaVersion: 1, Driver: "bme280", Unit: "hPa", Detail: detail}},
		{Kind: types.KindHumidity, Info: types.Info{SchemaVersion: 1, Driver: "bme280", Unit: "%RH", Detail: detail}},
	}
}

func (a *bme280Adaptor) device() (*bme280.Device, error) {
	if d := a.dev.Load(); d != nil {
		return d, nil
	}
	d, err := bme280.New(a.bus, bme280.Config{Address: a.addr})
	if err != nil {
		return nil, err
	}
	a.dev.Store(d)
	return d, nil
}

func (a *bme280Adaptor) Trigger(ctx context.Context) (time.Duration, error) {
	d, err := a.device()
	if err != nil {
		return 0, err
	}
	if err := d.Trigger(); err != nil {
		return 0, err
	}
	return d.MeasureTime(), nil
}

func (a *bme280Adaptor) Collect(ctx context.Context) (Sample, error) {
	d := a.dev.Load()
	if d == nil {
		return nil, errcode.NotReady
	}
	busy, err := d.Busy()
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrNotReady
	}
	m, err := d.Collect()
	if err != nil {
		return nil, err
	}
	ts := time.Now().UnixMilli()
	return Sample{
		{Kind: types.KindTemperature, Payload: temperatureValue(m, ts), TsMs: ts},
		{Kind: types.KindPressure, Payload: pressureValue(m, ts), TsMs: ts},
		{Kind: types.KindHumidity, Payload: humidityValue(m, ts), TsMs: ts},
	}, nil
}

func (a *bme280Adaptor) Control(kind types.Kind, method string, payload any) (any, error) {
	switch method {
	case "calibration", "chip_id":
	default:
		return nil, ErrUnsupported
	}
	d := a.dev.Load()
	if d == nil {
		return nil, errcode.NotReady
	}
	if method == "chip_id" {
		return types.ChipIDReply{ChipID: d.ChipID(), BME280: d.ChipID() == bme280.ChipIDBME280}, nil
	}
	return d.Calibration(), nil
}

func temperatureValue(m bme280.Measurement, ts int64) types.TemperatureValue {
	return types.TemperatureValue{
		CentiC: m.Temperature,
		DeciC:  int16(mathx.Clamp(m.DeciCelsius(), -32768, 32767)),
		TS:     ts,
	}
}

func pressureValue(m bme280.Measurement, ts int64) types.PressureValue {
	return types.PressureValue{PaX256: m.Pressure, DeciHPa: m.DeciHectoPascal(), TS: ts}
}

func humidityValue(m bme280.Measurement, ts int64) types.HumidityValue {
	return types.HumidityValue{
		RHx1024: m.Humidity,
		RHx100:  uint16(mathx.Clamp(m.RHx100(), 0, 10000)),
		TS:      ts,
	}
}
