package hal

import (
	"context"
	"sync"
	"time"

	"bme280-go/types"
)

// BuildInput is provided to a device builder to construct an Adaptor.
type BuildInput struct {
	Ctx      context.Context
	Buses    I2CBusFactory
	DeviceID string
	Type     string
	BusRef   types.BusRef
	Params   any
}

// BuildOutput is returned by a builder.
type BuildOutput struct {
	Adaptor     Adaptor
	BusID       string        // bucket key for the shared worker (e.g. "i2c0")
	SampleEvery time.Duration // 0 if not a periodic producer
}

// Builder constructs an Adaptor from config and platform factories.
type Builder interface {
	Build(in BuildInput) (BuildOutput, error)
}

// BuilderFunc adapts a plain function to Builder.
type BuilderFunc func(in BuildInput) (BuildOutput, error)

func (f BuilderFunc) Build(in BuildInput) (BuildOutput, error) { return f(in) }

var (
	muBuilders sync.RWMutex
	builders   = map[string]Builder{}
)

// RegisterBuilder installs a builder for a given device type string.
// It panics on duplicate registration to catch mistakes at start-up.
func RegisterBuilder(deviceType string, b Builder) {
	muBuilders.Lock()
	defer muBuilders.Unlock()
	if deviceType == "" {
		panic("hal: empty device type for builder")
	}
	if _, exists := builders[deviceType]; exists {
		panic("hal: builder already registered for type " + deviceType)
	}
	builders[deviceType] = b
}

func findBuilder(deviceType string) (Builder, bool) {
	muBuilders.RLock()
	defer muBuilders.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}
