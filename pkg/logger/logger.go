package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib logger for libraries that cannot take a slog.Logger.
// Lines are forwarded to the default slog logger at error level.
func New(component string) *log.Logger {
	return NewWith(slog.Default(), component)
}

// NewWith bridges a stdlib logger into l, tagging every line with component.
func NewWith(l *slog.Logger, component string) *log.Logger {
	if l == nil {
		l = slog.Default()
	}
	return slog.NewLogLogger(l.With("component", component).Handler(), slog.LevelError)
}
