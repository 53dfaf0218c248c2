//go:build !(rp2040 || rp2350)

package logx

import logger "github.com/d2r2/go-logger"

// New returns a package logger at info level.
func New(pkg string) Logger { return logger.NewPackageLogger(pkg, logger.InfoLevel) }

// SetDebug switches a package between debug and info level.
func SetDebug(pkg string, debug bool) error {
	lvl := logger.InfoLevel
	if debug {
		lvl = logger.DebugLevel
	}
	return logger.ChangePackageLogLevel(pkg, lvl)
}

// FinalizeLogger flushes and closes go-logger's output.
func FinalizeLogger() { logger.FinalizeLogger() }
