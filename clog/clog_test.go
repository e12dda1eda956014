package clog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dsvdc/vdchost/clog"
)

type recordingProvider struct {
	lines []string
}

func (r *recordingProvider) Critical(format string, v ...interface{}) { r.lines = append(r.lines, format) }
func (r *recordingProvider) Error(format string, v ...interface{})    { r.lines = append(r.lines, format) }
func (r *recordingProvider) Warn(format string, v ...interface{})     { r.lines = append(r.lines, format) }
func (r *recordingProvider) Debug(format string, v ...interface{})    { r.lines = append(r.lines, format) }

func TestLogModeGatesOutput(t *testing.T) {
	rec := &recordingProvider{}
	l := clog.NewLogger("")
	l.SetLogProvider(rec)
	l.Debug("quiet")
	assert.Empty(t, rec.lines)

	l.LogMode(true)
	l.Debug("loud")
	assert.Equal(t, []string{"loud"}, rec.lines)
}

func TestWithTagsMessages(t *testing.T) {
	rec := &recordingProvider{}
	l := clog.NewLogger("")
	l.SetLogProvider(rec)
	l.LogMode(true)

	tagged := l.With("session-1")
	tagged.Warn("hello")
	assert.Equal(t, []string{"[session-1] hello"}, rec.lines)
}

func TestWithSnapshotsEnabledState(t *testing.T) {
	rec := &recordingProvider{}
	l := clog.NewLogger("")
	l.SetLogProvider(rec)

	tagged := l.With("early")
	l.LogMode(true)
	tagged.Warn("still quiet")
	assert.Empty(t, rec.lines)
}
