// Package tracker watches the set of connected Android devices and emits
// change events, the way the teacher's websocket hub pushes frames: a
// buffered channel the engine drains and fans out.
//
// Grounded on original_source/src-tauri/src/adb/tracker.rs's two-thread
// design (an `adb track-devices` line-triggered poller plus a subordinate
// heartbeat thread for transitional devices), reworked into two goroutines
// synchronized through atomic.Bool and a mutex-guarded last-seen snapshot,
// the same primitives the teacher's websocket.Client uses for its closed
// flag and hub map.
package tracker

import (
	"bufio"
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"devicebridge/models"
	"devicebridge/process"
)

// Source is the subset of *adb.Client the tracker needs, narrowed to an
// interface so tests can substitute a fake without spawning adb.
type Source interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	StartStreaming(ctx context.Context, args []string) (*process.StreamingChild, error)
}

// DebounceDelay bounds how often a track-devices line can trigger a fresh
// `adb devices -l` scan.
const DebounceDelay = 500 * time.Millisecond

const (
	fastPollInterval = 2 * time.Second
	slowPollInterval = 10 * time.Second
	restartDelay     = 1 * time.Second
	spawnFailDelay   = 5 * time.Second
)

// Event is a device-list-changed notification.
type Event struct {
	Devices []models.Device
}

// Tracker runs the track-devices loop plus its heartbeat subordinate and
// publishes Events on Changes(). Start must be called once; Stop is
// idempotent.
type Tracker struct {
	source Source
	events chan Event

	running atomic.Bool

	mu   sync.Mutex
	last []models.Device

	wg sync.WaitGroup
}

func New(source Source) *Tracker {
	return &Tracker{
		source: source,
		events: make(chan Event, 16),
	}
}

// Changes returns the channel Events are published on. It is closed once
// both goroutines have exited.
func (t *Tracker) Changes() <-chan Event { return t.events }

// Start launches the track-devices loop and its heartbeat subordinate.
// ctx cancellation and Stop are equivalent ways to shut the tracker down.
func (t *Tracker) Start(ctx context.Context) {
	t.running.Store(true)

	t.wg.Add(2)
	go t.runTrackLoop(ctx)
	go t.runHeartbeat(ctx)

	go func() {
		t.wg.Wait()
		close(t.events)
	}()
}

// Stop signals both goroutines to exit and blocks until they do.
func (t *Tracker) Stop() {
	t.running.Store(false)
	t.wg.Wait()
}

func (t *Tracker) emitIfChanged(ctx context.Context) {
	devices, err := t.source.ListDevices(ctx)
	if err != nil {
		return
	}

	t.mu.Lock()
	changed := !models.EqualSet(t.last, devices)
	if changed {
		t.last = devices
	}
	t.mu.Unlock()

	if !changed {
		return
	}

	select {
	case t.events <- Event{Devices: devices}:
	case <-ctx.Done():
	}
}

func (t *Tracker) hasTransitional() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.last {
		if d.Status == models.StatusUnauthorized || d.Status == models.StatusUnknown {
			return true
		}
	}
	return false
}

// runHeartbeat polls `adb devices -l` directly: fast (2s) while any
// tracked device is in a transitional state, slow (10s) otherwise. This
// catches transitions track-devices itself sometimes misses (e.g. a
// device flipping from unauthorized to authorized after the user taps
// "Allow" on-device).
func (t *Tracker) runHeartbeat(ctx context.Context) {
	defer t.wg.Done()

	for t.running.Load() {
		interval := slowPollInterval
		if t.hasTransitional() {
			interval = fastPollInterval
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}

		if !t.running.Load() {
			return
		}
		t.emitIfChanged(ctx)
	}
}

// runTrackLoop spawns `adb track-devices` and treats any non-blank output
// line as a signal to rescan, debounced so a burst of lines collapses into
// one scan. If the child process dies or fails to spawn, it is restarted
// after a short delay.
func (t *Tracker) runTrackLoop(ctx context.Context) {
	defer t.wg.Done()

	lastEmit := time.Now().Add(-10 * time.Second)

	for t.running.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		child, err := t.source.StartStreaming(ctx, []string{"track-devices"})
		if err != nil {
			log.Printf("tracker: failed to start track-devices: %v", err)
			select {
			case <-time.After(spawnFailDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		scanner := bufio.NewScanner(child.Stdout)
		for scanner.Scan() {
			if !t.running.Load() {
				child.Kill()
				break
			}

			line := scanner.Text()
			if len(line) == 0 {
				continue
			}

			now := time.Now()
			if now.Sub(lastEmit) >= DebounceDelay {
				t.emitIfChanged(ctx)
				lastEmit = now
			}
		}
		child.Kill()
		_ = child.Wait()

		if t.running.Load() {
			select {
			case <-time.After(restartDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}
