package hal

import (
	"context"
	"testing"
	"time"

	"bme280-go/bus"
	"bme280-go/drivers/bme280"
	"bme280-go/types"
)

const testConfig = `{
	"version": 1,
	"buses": [{"id": "i2c0", "type": "i2c"}],
	"devices": [{
		"id": "bme0",
		"type": "bme280",
		"bus_ref": {"id": "i2c0", "type": "i2c"},
		"params": {"addr": 118, "period_ms": 60000}
	}]
}`

type halHarness struct {
	conn   *bus.Connection
	caps   *bus.Subscription
	i2c    *fakeI2C
	capIDs map[types.Kind]int
}

// startHAL runs the service on a fake bus, waits for awaiting_config, applies
// testConfig and collects the capability ids from the retained info topics.
func startHAL(t *testing.T) *halHarness {
	t.Helper()
	b := bus.NewBus(128)
	halConn := b.NewConnection("hal")
	h := &halHarness{conn: b.NewConnection("test"), i2c: newFakeBME280(), capIDs: map[types.Kind]int{}}

	stateSub := h.conn.Subscribe(TopicState)
	h.caps = h.conn.Subscribe(bus.T("hal", "capability", bus.Multi))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, halConn, fakeFactory{"i2c0": h.i2c})
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		h.conn.Disconnect()
	})

	waitFor(t, stateSub, time.Second, func(m *bus.Message) bool {
		s, _ := m.Payload.(types.HALState)
		return s.Level == "idle" && s.Status == "awaiting_config"
	})

	h.conn.Publish(h.conn.NewMessage(TopicConfig, []byte(testConfig), true))

	waitFor(t, stateSub, time.Second, func(m *bus.Message) bool {
		s, _ := m.Payload.(types.HALState)
		return s.Level == "ready"
	})

	deadline := time.Now().Add(time.Second)
	for len(h.capIDs) < 3 && time.Now().Before(deadline) {
		m := waitFor(t, h.caps, time.Second, func(m *bus.Message) bool {
			return len(m.Topic) == 5 && m.Topic[4] == "info"
		})
		kind, _ := m.Topic[2].(string)
		id, _ := asInt(m.Topic[3])
		h.capIDs[types.Kind(kind)] = id
	}
	if len(h.capIDs) != 3 {
		t.Fatalf("capability ids = %v", h.capIDs)
	}
	return h
}

func (h *halHarness) control(t *testing.T, kind types.Kind, method string, payload any) any {
	t.Helper()
	req := h.conn.NewMessage(capTopic(kind, h.capIDs[kind], "control", method), payload, false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	rep, err := h.conn.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("%s/%s: %v", kind, method, err)
	}
	return rep.Payload
}

func waitFor(t *testing.T, sub *bus.Subscription, d time.Duration, match func(*bus.Message) bool) *bus.Message {
	t.Helper()
	timeout := time.After(d)
	for {
		select {
		case m := <-sub.Channel():
			if match(m) {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out on %v", sub.Topic())
			return nil
		}
	}
}

func TestHAL_EndToEnd_ReadNow(t *testing.T) {
	h := startHAL(t)

	rep, ok := h.control(t, types.KindTemperature, "read_now", nil).(types.OKReply)
	if !ok || !rep.OK {
		t.Fatalf("read_now reply = %#v", rep)
	}

	got := map[types.Kind]any{}
	for len(got) < 3 {
		m := waitFor(t, h.caps, time.Second, func(m *bus.Message) bool {
			return len(m.Topic) == 5 && m.Topic[4] == "value"
		})
		kind, _ := m.Topic[2].(string)
		got[types.Kind(kind)] = m.Payload
	}
	if v := got[types.KindTemperature].(types.TemperatureValue); v.CentiC != 2508 || v.DeciC != 251 {
		t.Fatalf("temperature = %+v", v)
	}
	if v := got[types.KindPressure].(types.PressureValue); v.PaX256 != 25767233 {
		t.Fatalf("pressure = %+v", v)
	}
	if v := got[types.KindHumidity].(types.HumidityValue); v.RHx1024 != 56317 || v.RHx100 != 5500 {
		t.Fatalf("humidity = %+v", v)
	}
	if h.i2c.triggerCount() == 0 {
		t.Fatal("no forced-mode trigger reached the bus")
	}
}

func TestHAL_Controls(t *testing.T) {
	h := startHAL(t)

	rep := h.control(t, types.KindPressure, "set_rate", map[string]any{"period_ms": 50}).(types.OKReply)
	if r, _ := rep.Result.(types.SetRate); !rep.OK || r.PeriodMS != 200 {
		t.Fatalf("set_rate reply = %#v", rep)
	}

	if e := h.control(t, types.KindPressure, "set_rate", map[string]any{"period_ms": 0}).(types.ErrorReply); e.Error != "invalid_period" {
		t.Fatalf("set_rate(0) reply = %#v", e)
	}

	if e := h.control(t, types.KindHumidity, "reset", nil).(types.ErrorReply); e.Error != "unsupported" {
		t.Fatalf("reset reply = %#v", e)
	}

	// Wait for the first measurement so the device is open.
	h.control(t, types.KindTemperature, "read_now", nil)
	waitFor(t, h.caps, time.Second, func(m *bus.Message) bool {
		return len(m.Topic) == 5 && m.Topic[4] == "value"
	})
	rep = h.control(t, types.KindTemperature, "calibration", nil).(types.OKReply)
	if c, _ := rep.Result.(bme280.Calibration); c != refCalib {
		t.Fatalf("calibration reply = %#v", rep)
	}

	req := h.conn.NewMessage(bus.T("hal", "capability", "temperature", 42, "control", "read_now"), nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	m, err := h.conn.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("unknown capability request: %v", err)
	}
	if e := m.Payload.(types.ErrorReply); e.Error != "unknown_capability" {
		t.Fatalf("unknown capability reply = %#v", e)
	}
}

func TestHAL_BusFailureDegradesCapabilities(t *testing.T) {
	h := startHAL(t)
	h.i2c.setFail(errNack)

	h.control(t, types.KindHumidity, "read_now", nil)

	m := waitFor(t, h.caps, time.Second, func(m *bus.Message) bool {
		st, ok := m.Payload.(types.CapabilityStatus)
		return ok && st.Link == types.LinkDegraded
	})
	if st := m.Payload.(types.CapabilityStatus); st.Error != "io_error" {
		t.Fatalf("degraded state = %+v", st)
	}
}

func TestHAL_StuckConversionReportsNotReady(t *testing.T) {
	h := startHAL(t)
	h.i2c.setBusyReads(1 << 20)

	h.control(t, types.KindTemperature, "read_now", nil)

	m := waitFor(t, h.caps, time.Second, func(m *bus.Message) bool {
		st, ok := m.Payload.(types.CapabilityStatus)
		return ok && st.Link == types.LinkDegraded
	})
	if st := m.Payload.(types.CapabilityStatus); st.Error != "not_ready" {
		t.Fatalf("degraded state = %+v", st)
	}
}

func TestHAL_RemovedDeviceGoesDown(t *testing.T) {
	h := startHAL(t)

	h.conn.Publish(h.conn.NewMessage(TopicConfig, types.HALConfig{Version: 1}, true))

	m := waitFor(t, h.caps, time.Second, func(m *bus.Message) bool {
		st, ok := m.Payload.(types.CapabilityStatus)
		return ok && st.Link == types.LinkDown
	})
	if m.Topic[4] != "state" {
		t.Fatalf("topic = %v", m.Topic)
	}
}
