// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-access/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Signals controls whether per-sample logs are shown (conditioning, dwell progress, scan ticks).
// Use --debug-signals to enable these very verbose logs
var Signals bool

// Log writes a debug message only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Info(msg, args...)
	}
}

// SignalLog writes a message only if signal debug mode is enabled
func SignalLog(msg string, args ...any) {
	if Signals {
		log.Info(msg, args...)
	}
}
