// Package config publishes a device's JSON configuration on the bus, one
// retained "config/<key>" message per top-level key.
package config

import (
	"context"
	"encoding/json"
	"errors"

	"bme280-go/bus"
	"bme280-go/x/logx"
)

var lg = logx.New("config")

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

// CtxDeviceKey is the context key holding the device id.
const CtxDeviceKey ctxKey = "device"

// WithDevice returns ctx carrying the device id used to select a config.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, CtxDeviceKey, device)
}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

var (
	ErrNoDevice  = errors.New("config: missing device id in context")
	ErrNoConfig  = errors.New("config: no embedded config for device")
	ErrNotObject = errors.New("config: config is not a JSON object")
)

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig resolves the device config and publishes each top-level key
// as a retained message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return ErrNoDevice
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return ErrNoConfig
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return ErrNotObject
		}
		return err
	}
	if m == nil {
		return ErrNotObject
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	lg.Infof("device %s: published %d config keys", device, len(m))
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			lg.Errorf("publish: %v", err)
		}
	}()
}
