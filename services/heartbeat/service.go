// Package heartbeat publishes a periodic liveness message for the node.
package heartbeat

import (
	"context"
	"time"

	"bme280-go/bus"
	"bme280-go/types"
	"bme280-go/x/logx"
)

var lg = logx.New("heartbeat")

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	TopicHeartbeat       = bus.T("heartbeat")
)

const defaultInterval = 10 * time.Second

type Service struct {
	start time.Time
	seq   uint32
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	interval := defaultInterval
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Infof("stopping")
			return
		case t := <-tick.C:
			s.seq++
			conn.Publish(conn.NewMessage(TopicHeartbeat, types.Heartbeat{
				Seq:      s.seq,
				UptimeMS: t.Sub(s.start).Milliseconds(),
				TS:       t.UnixMilli(),
			}, true))
		case msg := <-cfgSub.Channel():
			if iv := intervalOf(msg.Payload); iv > 0 && iv != interval {
				interval = iv
				tick.Reset(interval)
				lg.Infof("interval set to %v", interval)
			}
		}
	}
}

// intervalOf reads {"interval": seconds} as decoded by the config service.
func intervalOf(p any) time.Duration {
	m, ok := p.(map[string]any)
	if !ok {
		return 0
	}
	switch v := m["interval"].(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	}
	return 0
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.start = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}
