//go:build linux

// Command bme280-host reads a BME280 on a Linux I²C bus, either once or as a
// HAL node publishing periodic measurements on the in-process bus.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"bme280-go/bus"
	"bme280-go/drivers/bme280"
	"bme280-go/services/config"
	"bme280-go/services/hal"
	"bme280-go/services/hal/platform"
	"bme280-go/services/heartbeat"
	"bme280-go/types"
	"bme280-go/x/logx"

	logger "github.com/d2r2/go-logger"
	"tinygo.org/x/drivers"
)

var lg = logger.NewPackageLogger("main", logger.InfoLevel)

type options struct {
	backend   string
	bus       int
	addr      uint
	period    time.Duration
	once      bool
	dumpCalib bool
	cfgPath   string
	debug     bool
}

func main() {
	var o options
	flag.StringVar(&o.backend, "backend", "periph", "I2C backend: periph, smbus or d2r2")
	flag.IntVar(&o.bus, "bus", 1, "I2C bus number (/dev/i2c-N)")
	flag.UintVar(&o.addr, "addr", uint(bme280.AddressPrimary), "device address (0x76 or 0x77)")
	flag.DurationVar(&o.period, "period", 2*time.Second, "sampling period in HAL mode")
	flag.BoolVar(&o.once, "once", false, "take one measurement and exit")
	flag.BoolVar(&o.dumpCalib, "dump-calib", false, "print the decoded calibration and exit")
	flag.StringVar(&o.cfgPath, "config", "", "JSON config file (default: generated from flags)")
	flag.BoolVar(&o.debug, "debug", false, "debug logging")
	flag.Parse()

	err := run(o)
	if err != nil {
		lg.Errorf("%v", err)
	}
	logger.FinalizeLogger()
	if err != nil {
		os.Exit(1)
	}
}

func run(o options) error {
	if o.debug {
		for _, pkg := range []string{"main", "hal", "config", "platform"} {
			_ = logx.SetDebug(pkg, true)
		}
	}

	busID := "i2c" + strconv.Itoa(o.bus)
	f, err := openFactory(o.backend, busID, o.bus)
	if err != nil {
		return fmt.Errorf("open %s: %w", o.backend, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			lg.Errorf("close: %v", cerr)
		}
	}()

	if o.dumpCalib || o.once {
		b, ok := f.ByID(busID)
		if !ok {
			return fmt.Errorf("bus %s not opened", busID)
		}
		return readOnce(b, uint16(o.addr), o.dumpCalib)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runNode(ctx, f, busID, o)
}

func openFactory(backend, busID string, n int) (*platform.Factory, error) {
	switch backend {
	case "periph":
		return platform.OpenPeriph(map[string]string{busID: strconv.Itoa(n)})
	case "smbus":
		return platform.OpenSMBus(map[string]int{busID: n})
	case "d2r2":
		return platform.OpenD2R2(map[string]int{busID: n}), nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func readOnce(b drivers.I2C, addr uint16, dumpCalib bool) error {
	d, err := bme280.New(b, bme280.Config{Address: addr})
	if err != nil {
		return err
	}
	if d.ChipID() != bme280.ChipIDBME280 {
		lg.Infof("chip id 0x%02x is not a BME280 (0x60)", d.ChipID())
	}

	if dumpCalib {
		c := d.Calibration()
		fmt.Printf("%+v\n", c)
		enc := c.Encode()
		fmt.Printf("% x\n", enc[:])
		return nil
	}

	if err := d.Trigger(); err != nil {
		return err
	}
	time.Sleep(d.MeasureTime())
	m, err := d.Collect()
	if err != nil {
		return err
	}
	e := platform.Env(m)
	fmt.Println(m)
	fmt.Printf("%s %s %s\n", e.Temperature, e.Pressure, e.Humidity)
	return nil
}

func runNode(ctx context.Context, f *platform.Factory, busID string, o options) error {
	var raw []byte
	var err error
	if o.cfgPath != "" {
		raw, err = os.ReadFile(o.cfgPath)
	} else {
		raw, err = generatedConfig(busID, uint16(o.addr), o.period)
	}
	if err != nil {
		return err
	}
	config.EmbeddedConfigLookup = func(string) ([]byte, bool) { return raw, true }

	b := bus.NewBus(16)
	halConn := b.NewConnection("hal")
	cfgConn := b.NewConnection("config")
	hbConn := b.NewConnection("heartbeat")
	monConn := b.NewConnection("monitor")

	mon := monConn.Subscribe(bus.T("hal", bus.Multi))
	beat := monConn.Subscribe(heartbeat.TopicHeartbeat)
	defer monConn.Disconnect()

	go hal.Run(ctx, halConn, f)
	var hb heartbeat.Service
	_ = hb.Start(ctx, hbConn)
	config.NewConfigService().Start(config.WithDevice(ctx, "host"), cfgConn)

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-mon.Channel():
			logMessage(m)
		case m := <-beat.Channel():
			lg.Debugf("heartbeat: %+v", m.Payload)
		}
	}
}

func generatedConfig(busID string, addr uint16, period time.Duration) ([]byte, error) {
	cfg := map[string]any{
		"hal": types.HALConfig{
			Version: 1,
			Buses:   []types.BusCfg{{ID: busID, Type: "i2c"}},
			Devices: []types.Device{{
				ID:     "bme0",
				Type:   "bme280",
				BusRef: types.BusRef{Type: "i2c", ID: busID},
				Params: types.BME280Params{Addr: addr, PeriodMS: int(period / time.Millisecond)},
			}},
		},
		"heartbeat": map[string]any{"interval": 10},
	}
	return json.Marshal(cfg)
}

func logMessage(m *bus.Message) {
	switch p := m.Payload.(type) {
	case types.TemperatureValue:
		lg.Infof("%v: %.2f°C", m.Topic, float64(p.CentiC)/100)
	case types.PressureValue:
		lg.Infof("%v: %.1f hPa", m.Topic, float64(p.DeciHPa)/10)
	case types.HumidityValue:
		lg.Infof("%v: %.2f %%RH", m.Topic, float64(p.RHx100)/100)
	case types.CapabilityStatus:
		if p.Link != types.LinkUp {
			lg.Infof("%v: %s %s", m.Topic, p.Link, p.Error)
		}
	case types.HALState:
		lg.Infof("hal: %s/%s %s", p.Level, p.Status, p.Error)
	default:
		lg.Debugf("%v: %+v", m.Topic, m.Payload)
	}
}
