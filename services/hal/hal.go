package hal

import (
	"context"
	"errors"
	"time"

	"bme280-go/bus"
	"bme280-go/errcode"
	"bme280-go/types"
	"bme280-go/x/logx"
	"bme280-go/x/mathx"
)

var lg = logx.New("hal")

// Sampling period bounds for set_rate and device params.
const (
	minPeriodMS = 200
	maxPeriodMS = 3_600_000
)

// Topics.
var (
	TopicConfig = bus.T("config", "hal")
	TopicState  = bus.T("hal", "state")
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run serves the HAL until ctx ends. It waits for a config on "config/hal",
// builds one adaptor per configured device and samples each periodically on
// a per-bus worker.
func Run(ctx context.Context, conn *bus.Connection, i2c I2CBusFactory) {
	s := &service{
		conn:       conn,
		i2cFactory: i2c,
		workers:    map[string]*measureWorker{},
		devices:    map[string]devEntry{},
		capToDev:   map[capKey]string{},
		nextCapID:  map[types.Kind]int{},
		devPeriod:  map[string]time.Duration{},
		devNextDue: map[string]time.Time{},
		results:    make(chan Result, 32),
	}
	s.loop(ctx)
}

type devEntry struct {
	adaptor Adaptor
	caps    map[types.Kind]int // kind -> numeric capability id
	busID   string
}

type capKey struct {
	kind types.Kind
	id   int
}

type service struct {
	conn       *bus.Connection
	i2cFactory I2CBusFactory

	workers map[string]*measureWorker // by bus id
	devices map[string]devEntry

	capToDev  map[capKey]string
	nextCapID map[types.Kind]int

	devPeriod  map[string]time.Duration
	devNextDue map[string]time.Time

	timer   *time.Timer
	results chan Result
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(TopicConfig)
	ctrlSub := s.conn.Subscribe(bus.T("hal", "capability", bus.Single, bus.Single, "control", bus.Single))
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	s.timer = time.NewTimer(time.Hour)
	if !s.timer.Stop() {
		drainTimer(s.timer)
	}

	for {
		if next := earliest(s.devNextDue); next.IsZero() {
			resetTimer(s.timer, time.Hour)
		} else {
			resetTimer(s.timer, time.Until(next))
		}

		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg HALConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				lg.Errorf("config decode: %v", err)
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.applyConfig(ctx, cfg)
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-s.timer.C:
			now := time.Now()
			for devID, due := range s.devNextDue {
				if !now.Before(due) {
					s.submitMeasure(devID, false)
					s.bumpDevNext(devID, now)
				}
			}

		case r := <-s.results:
			s.handleResult(r)
		}
	}
}

// hal/capability/<kind>/<id:int>/control/<method>
func (s *service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 6 {
		return
	}
	kindStr, _ := msg.Topic[2].(string)
	idNum, ok := asInt(msg.Topic[3])
	if !ok || kindStr == "" {
		s.replyErr(msg, errcode.InvalidParams)
		return
	}
	kind := types.Kind(kindStr)
	devID, ok := s.capToDev[capKey{kind: kind, id: idNum}]
	if !ok {
		s.replyErr(msg, errcode.UnknownCapability)
		return
	}
	method, _ := msg.Topic[5].(string)

	switch method {
	case "read_now":
		if s.submitMeasure(devID, true) {
			s.bumpDevNext(devID, time.Now())
			s.replyOK(msg, nil)
		} else {
			s.replyErr(msg, errcode.Busy)
		}
	case "set_rate":
		var p types.SetRate
		if err := decodeJSON(msg.Payload, &p); err != nil || p.PeriodMS <= 0 {
			s.replyErr(msg, errcode.InvalidPeriod)
			return
		}
		ms := clampPeriodMS(p.PeriodMS)
		s.devPeriod[devID] = time.Duration(ms) * time.Millisecond
		s.bumpDevNext(devID, time.Now())
		s.replyOK(msg, types.SetRate{PeriodMS: ms})
	default:
		res, err := s.devices[devID].adaptor.Control(kind, method, msg.Payload)
		if err != nil {
			if errors.Is(err, ErrUnsupported) {
				s.replyErr(msg, errcode.Unsupported)
			} else {
				s.replyErr(msg, errcode.Of(err))
			}
			return
		}
		s.replyOK(msg, res)
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// applyConfig adds devices not seen before and removes devices that are no
// longer configured. Devices already running are left alone.
func (s *service) applyConfig(ctx context.Context, cfg HALConfig) {
	seen := map[string]struct{}{}

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		seen[d.ID] = struct{}{}
		if _, exists := s.devices[d.ID]; exists {
			continue
		}

		b, ok := findBuilder(d.Type)
		if !ok {
			lg.Errorf("device %s: no builder for type %q", d.ID, d.Type)
			continue
		}
		out, err := b.Build(BuildInput{
			Ctx:      ctx,
			Buses:    s.i2cFactory,
			DeviceID: d.ID,
			Type:     d.Type,
			BusRef:   d.BusRef,
			Params:   d.Params,
		})
		if err != nil {
			lg.Errorf("device %s: build: %v", d.ID, err)
			continue
		}

		if _, ok := s.workers[out.BusID]; !ok {
			w := NewWorker(WorkerConfig{}, s.results)
			w.Start(ctx)
			s.workers[out.BusID] = w
		}

		entry := devEntry{adaptor: out.Adaptor, busID: out.BusID, caps: map[types.Kind]int{}}
		now := time.Now().UnixMilli()
		for _, ci := range out.Adaptor.Capabilities() {
			id := s.nextCapID[ci.Kind]
			s.nextCapID[ci.Kind]++

			entry.caps[ci.Kind] = id
			s.capToDev[capKey{kind: ci.Kind, id: id}] = d.ID

			s.pubRet(capTopic(ci.Kind, id, "info"), ci.Info)
			s.pubRet(capTopic(ci.Kind, id, "state"), types.CapabilityStatus{Link: types.LinkUp, TS: now})
		}
		s.devices[d.ID] = entry

		if out.SampleEvery > 0 {
			s.devPeriod[d.ID] = out.SampleEvery
			s.devNextDue[d.ID] = time.Now().Add(minPeriodMS * time.Millisecond)
		}
		lg.Infof("device %s (%s) on %s: %d capabilities", d.ID, d.Type, out.BusID, len(entry.caps))
	}

	for devID, ent := range s.devices {
		if _, ok := seen[devID]; ok {
			continue
		}
		now := time.Now().UnixMilli()
		for kind, id := range ent.caps {
			s.pubRet(capTopic(kind, id, "info"), nil)
			s.pubRet(capTopic(kind, id, "state"), types.CapabilityStatus{Link: types.LinkDown, TS: now})
			delete(s.capToDev, capKey{kind: kind, id: id})
		}
		delete(s.devices, devID)
		delete(s.devPeriod, devID)
		delete(s.devNextDue, devID)
		lg.Infof("device %s removed", devID)
	}
}

// -----------------------------------------------------------------------------
// Results and helpers
// -----------------------------------------------------------------------------

func (s *service) submitMeasure(devID string, prio bool) bool {
	ent, ok := s.devices[devID]
	if !ok {
		return false
	}
	w := s.workers[ent.busID]
	if w == nil {
		return false
	}
	return w.Submit(MeasureReq{ID: devID, Adaptor: ent.adaptor, Prio: prio})
}

func (s *service) bumpDevNext(devID string, from time.Time) {
	period, ok := s.devPeriod[devID]
	if !ok {
		return
	}
	s.devNextDue[devID] = from.Add(period)
}

func (s *service) handleResult(r Result) {
	ent, ok := s.devices[r.ID]
	if !ok || (r.Adaptor != nil && r.Adaptor != ent.adaptor) {
		// Device removed, or replaced while a cycle was in flight.
		return
	}
	now := time.Now().UnixMilli()

	if r.Err != nil {
		code := errcode.MapDriverErr(r.Err)
		if errors.Is(r.Err, ErrNotReady) {
			code = errcode.NotReady
		}
		lg.Debugf("device %s: %v", r.ID, r.Err)
		for kind, id := range ent.caps {
			s.pubRet(capTopic(kind, id, "state"),
				types.CapabilityStatus{Link: types.LinkDegraded, Error: string(code), TS: now})
		}
		return
	}
	for _, rd := range r.Sample {
		id, ok := ent.caps[rd.Kind]
		if !ok {
			continue
		}
		s.conn.Publish(s.conn.NewMessage(capTopic(rd.Kind, id, "value"), rd.Payload, false))
		s.pubRet(capTopic(rd.Kind, id, "state"), types.CapabilityStatus{Link: types.LinkUp, TS: now})
	}
}

func (s *service) publishState(level, status string, err error) {
	st := types.HALState{Level: level, Status: status, TS: time.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	s.pubRet(TopicState, st)
}

func (s *service) replyOK(req *bus.Message, result any) {
	s.conn.Reply(req, types.OKReply{OK: true, Result: result}, false)
}

func (s *service) replyErr(req *bus.Message, c errcode.Code) {
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: string(c)}, false)
}

func (s *service) pubRet(t bus.Topic, p any) {
	s.conn.Publish(s.conn.NewMessage(t, p, true))
}

func capTopic(kind types.Kind, id int, rest ...bus.Token) bus.Topic {
	return bus.T("hal", "capability", string(kind), id).Append(rest...)
}

func clampPeriodMS(ms int) int { return mathx.Clamp(ms, minPeriodMS, maxPeriodMS) }

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
