// Package registry is the engine's single owner of every live per-device
// session (scrcpy video session, logcat stream, tracker subscription):
// one instance, held by package engine and passed by reference to
// workers, replacing the global session maps the corpus uses elsewhere
// (original_source's SCRCPY_SESSIONS, the teacher's
// StreamingService.streams) with an engine-owned value.
package registry

import (
	"fmt"
	"sync"
)

// Session is anything the registry can hold and later tear down: a
// scrcpy.Session, a logcatmux stream handle, or similar.
type Session interface {
	Kind() string
	Close() error
}

// key identifies one slot: a device can hold at most one live session of
// a given kind at a time (spec.md testable property 6).
type key struct {
	deviceID string
	kind     string
}

// Registry is a thread-safe map from (deviceID, kind) to a live Session.
type Registry struct {
	mu       sync.Mutex
	sessions map[key]Session
}

func New() *Registry {
	return &Registry{sessions: make(map[key]Session)}
}

// Insert adds a session for deviceID, failing if one of the same kind is
// already registered for that device.
func (r *Registry) Insert(deviceID string, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{deviceID: deviceID, kind: s.Kind()}
	if _, exists := r.sessions[k]; exists {
		return fmt.Errorf("a %s session for device %s is already running", s.Kind(), deviceID)
	}
	r.sessions[k] = s
	return nil
}

// Get returns the live session of the given kind for deviceID, if any.
func (r *Registry) Get(deviceID, kind string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key{deviceID: deviceID, kind: kind}]
	return s, ok
}

// Remove removes and returns the session of the given kind for deviceID
// without closing it; the caller takes ownership of the teardown.
func (r *Registry) Remove(deviceID, kind string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{deviceID: deviceID, kind: kind}
	s, ok := r.sessions[k]
	if ok {
		delete(r.sessions, k)
	}
	return s, ok
}

// RemoveAndClose removes the session of the given kind for deviceID and
// closes it, returning Close's error.
func (r *Registry) RemoveAndClose(deviceID, kind string) error {
	s, ok := r.Remove(deviceID, kind)
	if !ok {
		return nil
	}
	return s.Close()
}

// Snapshot returns every currently registered session, for diagnostics.
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// DrainOnShutdown closes every registered session and empties the
// registry. Errors from individual Close calls are collected but do not
// stop the drain; the caller (engine.Shutdown) is responsible for the
// accompanying `adb kill-server` call, issued exactly once after drain
// completes.
func (r *Registry) DrainOnShutdown() []error {
	r.mu.Lock()
	sessions := make([]Session, 0, len(r.sessions))
	for k, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, k)
	}
	r.mu.Unlock()

	var errsOut []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errsOut = append(errsOut, err)
		}
	}
	return errsOut
}

// Count returns how many sessions are currently registered.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
