package sip

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defLogger *zerolog.Logger

// SetDefaultLogger sets the logger used by the sip package for parse warnings
// and wire traces. Must be called before any usage of the package if the
// default (global zerolog logger) is not desired.
func SetDefaultLogger(l zerolog.Logger) {
	defLogger = &l
}

// DefaultLogger returns the logger installed with SetDefaultLogger, or the
// global zerolog logger otherwise.
func DefaultLogger() zerolog.Logger {
	if defLogger != nil {
		return *defLogger
	}
	return log.Logger
}
