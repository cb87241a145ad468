package logging

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/go-logr/stdr"
	"github.com/stretchr/testify/assert"
)

func newCapturingSink(buf *bytes.Buffer) Sink {
	std := log.New(buf, "", 0)
	return NewSink(stdr.New(std))
}

func TestInfoWritesToUnderlyingLogger(t *testing.T) {
	var buf bytes.Buffer
	sink := newCapturingSink(&buf)

	sink.Info("account registered", "contact", "mailto:ops@example.com")
	assert.Contains(t, buf.String(), "account registered")
	assert.Contains(t, buf.String(), "contact")
}

func TestNoticeTagsTheEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := newCapturingSink(&buf)

	sink.Notice("certificate issued")
	assert.Contains(t, buf.String(), "level")
	assert.Contains(t, buf.String(), noticeTag)
}

func TestCriticalIncludesError(t *testing.T) {
	var buf bytes.Buffer
	sink := newCapturingSink(&buf)

	sink.Critical(errors.New("disk full"), "writing bundle failed")
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), "writing bundle failed")
}

func TestDiscardDropsEverything(t *testing.T) {
	sink := Discard()
	assert.NotPanics(t, func() {
		sink.Info("anything")
		sink.Debug("anything")
		sink.Notice("anything")
		sink.Critical(errors.New("x"), "anything")
	})
}

func TestDebugRespectsVerbosity(t *testing.T) {
	var buf bytes.Buffer
	std := log.New(&buf, "", 0)
	stdr.SetVerbosity(0)
	sink := NewSink(stdr.New(std))

	sink.Debug("verbose detail")
	assert.Empty(t, buf.String(), "V(1) output must be suppressed below verbosity 1")

	stdr.SetVerbosity(1)
	sink.Debug("verbose detail")
	assert.Contains(t, buf.String(), "verbose detail")
}
