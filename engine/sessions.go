package engine

import (
	"context"

	"devicebridge/logcatmux"
	"devicebridge/scrcpy"
)

// mirrorSession adapts *scrcpy.Session to registry.Session.
type mirrorSession struct {
	sess *scrcpy.Session
}

func (m *mirrorSession) Kind() string { return "scrcpy" }

func (m *mirrorSession) Close() error {
	m.sess.Stop(context.Background())
	return nil
}

// logcatSession adapts one device's slot in a shared *logcatmux.Multiplexer
// to registry.Session, so the single-session-per-kind invariant applies
// to logcat streams the same way it does to scrcpy sessions even though
// one Multiplexer instance backs every device.
type logcatSession struct {
	mux      *logcatmux.Multiplexer
	deviceID string
}

func (l *logcatSession) Kind() string { return "logcat" }

func (l *logcatSession) Close() error {
	l.mux.Stop(l.deviceID)
	return nil
}
