//go:build rp2040 || rp2350

package main

import (
	"context"
	"runtime"
	"time"

	"bme280-go/bus"
	"bme280-go/services/config"
	"bme280-go/services/hal"
	"bme280-go/services/hal/platform"
	"bme280-go/services/heartbeat"
	"bme280-go/types"
)

func printTopic(t bus.Topic) {
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			print("/")
		}
		switch v := t.At(i).(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(3 * time.Second)
	ctx := context.Background()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)
	halConn := b.NewConnection("hal")
	cfgConn := b.NewConnection("config")
	hbConn := b.NewConnection("heartbeat")
	uiConn := b.NewConnection("ui")

	mon := uiConn.Subscribe(bus.T("hal", bus.Multi))
	beat := uiConn.Subscribe(heartbeat.TopicHeartbeat)

	println("[main] starting hal.Run …")
	go hal.Run(ctx, halConn, platform.DefaultI2CFactory())

	var hb heartbeat.Service
	_ = hb.Start(ctx, hbConn)

	println("[main] publishing embedded config …")
	config.NewConfigService().Start(config.WithDevice(ctx, "pico"), cfgConn)

	stats := time.NewTicker(30 * time.Second)
	defer stats.Stop()

	for {
		select {
		case m := <-mon.Channel():
			printMessage(m)
		case m := <-beat.Channel():
			if hb, ok := m.Payload.(types.Heartbeat); ok {
				println("[heartbeat]", hb.Seq, "uptime_ms:", hb.UptimeMS)
			}
		case <-stats.C:
			printMem()
		}
	}
}

func printMessage(m *bus.Message) {
	switch p := m.Payload.(type) {
	case types.TemperatureValue:
		printTopic(m.Topic)
		println(" centi_c:", p.CentiC)
	case types.PressureValue:
		printTopic(m.Topic)
		println(" deci_hpa:", p.DeciHPa)
	case types.HumidityValue:
		printTopic(m.Topic)
		println(" rh_x100:", p.RHx100)
	case types.CapabilityStatus:
		if p.Link != types.LinkUp {
			printTopic(m.Topic)
			println(" link:", string(p.Link), p.Error)
		}
	case types.HALState:
		println("[hal]", p.Level, p.Status, p.Error)
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
