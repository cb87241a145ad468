// Package logging provides a four-level (debug, info, notice,
// critical) logging contract on top of go-logr/logr, the same leveled
// logging library letsencrypt-boulder depends on for its own server
// logging.
package logging

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// noticeTag marks a notice-level event, since logr itself only has a
// numeric verbosity axis (V(0)/V(1)) plus a separate error channel, not
// a four-way debug/info/notice/critical split.
const noticeTag = "notice"

// New returns a Logger Sink writing one line per event to standard
// output, via stdr, go-logr's stdlib-log-backed implementation.
func New(name string) Sink {
	stdr.SetVerbosity(1)
	std := log.New(os.Stdout, "", log.LstdFlags)
	return NewSink(stdr.New(std).WithName(name))
}

// Sink wraps a logr.Logger with four named levels so callers elsewhere
// in the engine don't need to know logr's V()-based verbosity
// convention.
type Sink struct {
	log logr.Logger
}

// NewSink wraps log as a Sink. Passing the zero Logger discards every
// event.
func NewSink(log logr.Logger) Sink {
	return Sink{log: log}
}

// Debug emits a verbose, development-only event.
func (s Sink) Debug(msg string, keysAndValues ...interface{}) {
	s.log.V(1).Info(msg, keysAndValues...)
}

// Info emits a routine state-transition event.
func (s Sink) Info(msg string, keysAndValues ...interface{}) {
	s.log.V(0).Info(msg, keysAndValues...)
}

// Notice emits an event an operator should notice in normal output,
// e.g. "certificate issued".
func (s Sink) Notice(msg string, keysAndValues ...interface{}) {
	s.log.V(0).Info(msg, append(keysAndValues, "level", noticeTag)...)
}

// Critical emits a fatal or near-fatal condition, always via logr's
// error channel regardless of configured verbosity.
func (s Sink) Critical(err error, msg string, keysAndValues ...interface{}) {
	s.log.Error(err, msg, keysAndValues...)
}

// Discard returns a Sink that drops every event.
func Discard() Sink {
	return NewSink(logr.Discard())
}
