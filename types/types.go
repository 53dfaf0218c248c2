// Package types holds the JSON payloads exchanged on the bus.
package types

// ---- Common HAL state (retained) ----

type HALState struct {
	Level  string `json:"level"`  // "idle", "ready", "error", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
	Error  string `json:"error,omitempty"`
}

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"`
}

// ---- Capability kinds & info ----

type Kind string

const (
	KindTemperature Kind = "temperature"
	KindPressure    Kind = "pressure"
	KindHumidity    Kind = "humidity"
)

// Info envelope each capability exposes (retained).
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Unit          string `json:"unit,omitempty"`
	Detail        any    `json:"detail,omitempty"`
}

// ---- Generic replies ----

type OKReply struct {
	OK     bool `json:"ok"`
	Result any  `json:"result,omitempty"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Controls ----

type SetRate struct {
	PeriodMS int `json:"period_ms"`
}

// ---- Node liveness ----

type Heartbeat struct {
	Seq      uint32 `json:"seq"`
	UptimeMS int64  `json:"uptime_ms"`
	TS       int64  `json:"ts_ms"`
}
