// Package logx gives services a per-package levelled logger: d2r2/go-logger
// on hosts, println on RP2 firmware.
package logx

// Logger is the subset of github.com/d2r2/go-logger's PackageLog in use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}
