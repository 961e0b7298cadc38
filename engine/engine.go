// Package engine is the Boundary Interface: it wires the tracker, agent,
// logcatmux and scrcpy packages together behind a registry-backed session
// map and a single fan-out event channel, the same role the teacher's
// service.DeviceManager/ActionDispatcher/StreamingService trio plays for
// api/websocket.go, but collapsed into one owner per spec.md section 4.8
// instead of three services wired ad hoc in main.go.
package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"devicebridge/adb"
	"devicebridge/agent"
	"devicebridge/audit"
	"devicebridge/config"
	"devicebridge/errs"
	"devicebridge/logcatmux"
	"devicebridge/models"
	"devicebridge/registry"
	"devicebridge/scrcpy"
	"devicebridge/scrcpy/control"
	"devicebridge/tracker"
)

// Engine owns every long-lived worker and the one session registry they
// share.
type Engine struct {
	client *adb.Client
	cfg    config.Config
	audit  *audit.Log

	registry *registry.Registry
	tracker  *tracker.Tracker
	logs     *logcatmux.Multiplexer

	events  chan Event
	closeMu sync.RWMutex
	closed  bool

	devMu   sync.Mutex
	devices map[string]models.Device

	portMu         sync.Mutex
	nextAgentPort  int
	nextScrcpyPort int
	agentChannels  map[string]*agent.Channel

	actionQueue chan *models.Action

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Engine. auditLog may be nil (every record becomes a
// no-op), matching audit.Log's own nil-safety.
func New(client *adb.Client, cfg config.Config, auditLog *audit.Log) *Engine {
	if auditLog == nil {
		auditLog = audit.New(nil)
	}
	return &Engine{
		client:        client,
		cfg:           cfg,
		audit:         auditLog,
		registry:      registry.New(),
		tracker:       tracker.New(client),
		logs:          logcatmux.New(client),
		events:        make(chan Event, 256),
		devices:       make(map[string]models.Device),
		agentChannels: make(map[string]*agent.Channel),
		actionQueue:   make(chan *models.Action, 100),
	}
}

// Events returns the fan-out channel every boundary event is published
// on. It is closed once Shutdown has finished tearing down every worker.
func (e *Engine) Events() <-chan Event { return e.events }

// Start launches the tracker, the logcat batch forwarder, and the action
// queue processor. ctx governs every worker's lifetime; Shutdown should
// still be called afterward to guarantee ordered teardown.
func (e *Engine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.tracker.Start(runCtx)

	e.wg.Add(1)
	go e.forwardDeviceChanges(runCtx)

	e.wg.Add(1)
	go e.forwardLogcatBatches(runCtx)

	e.wg.Add(1)
	go e.processActionQueue(runCtx)

	log.Println("engine started")
}

// forwardDeviceChanges, forwardLogcatBatches and processActionQueue all
// select on ctx.Done() rather than relying solely on their source
// channel closing: neither tracker nor logcatmux guarantees its channel
// closes the instant Shutdown's cancel fires, and the action queue is
// never closed at all (a concurrent DispatchAction could still be
// sending to it). ctx.Done() is the one signal Shutdown can fire
// immediately and unconditionally.
func (e *Engine) forwardDeviceChanges(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case ev, ok := <-e.tracker.Changes():
			if !ok {
				return
			}
			e.devMu.Lock()
			e.devices = make(map[string]models.Device, len(ev.Devices))
			for _, d := range ev.Devices {
				e.devices[d.ID] = d
			}
			e.devMu.Unlock()
			e.emit(Event{Name: "device-changed", Payload: map[string]interface{}{"devices": ev.Devices}})
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) forwardLogcatBatches(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case batch, ok := <-e.logs.Batches():
			if !ok {
				return
			}
			name := fmt.Sprintf("logcat-line-%s", logcatmux.SanitizeDeviceID(batch.DeviceID))
			e.emit(Event{Name: name, DeviceID: batch.DeviceID, Payload: map[string]interface{}{
				"device_id": batch.DeviceID,
				"lines":     batch.Lines,
			}})
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) processActionQueue(ctx context.Context) {
	defer e.wg.Done()
	for {
		var action *models.Action
		select {
		case action = <-e.actionQueue:
		case <-ctx.Done():
			return
		}

		action.Status = "executing"
		err := e.executeAction(context.Background(), action)
		now := time.Now().Unix()
		if err != nil {
			action.Status = "failed"
			action.Result = err.Error()
			_ = e.audit.RecordAction(now, action.DeviceID, action.Type, audit.StatusFailed, err.Error())
			log.Printf("action %s on %s failed: %v", action.Type, action.DeviceID, err)
		} else {
			action.Status = "done"
			action.Result = "success"
			_ = e.audit.RecordAction(now, action.DeviceID, action.Type, audit.StatusDone, "")
		}
	}
}

// emit publishes an event unless the engine has already begun shutdown,
// and never blocks: a full channel drops the event rather than stalling
// whichever worker produced it.
func (e *Engine) emit(ev Event) {
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.events <- ev:
	default:
		log.Printf("dropping event %s: subscriber channel full", ev.Name)
	}
}

// Devices returns the last known device snapshot.
func (e *Engine) Devices() []models.Device {
	e.devMu.Lock()
	defer e.devMu.Unlock()
	out := make([]models.Device, 0, len(e.devices))
	for _, d := range e.devices {
		out = append(out, d)
	}
	return out
}

// ScanDevices forces an immediate `adb devices -l` scan, independent of
// the tracker's own polling cadence, and updates the device snapshot.
func (e *Engine) ScanDevices(ctx context.Context) ([]models.Device, error) {
	devices, err := e.client.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	e.devMu.Lock()
	e.devices = make(map[string]models.Device, len(devices))
	for _, d := range devices {
		e.devices[d.ID] = d
	}
	e.devMu.Unlock()
	return devices, nil
}

// allocatePortsLocked hands out the next agent and scrcpy ports. Callers must
// hold portMu.
func (e *Engine) allocatePortsLocked() (agentPort, scrcpyPort int) {
	if e.nextAgentPort == 0 {
		e.nextAgentPort = e.cfg.AgentBasePort
	}
	if e.nextScrcpyPort == 0 {
		e.nextScrcpyPort = e.cfg.ScrcpyBasePort
	}
	agentPort = e.nextAgentPort
	scrcpyPort = e.nextScrcpyPort
	e.nextAgentPort++
	e.nextScrcpyPort++
	return
}

func (e *Engine) allocatePorts() (agentPort, scrcpyPort int) {
	e.portMu.Lock()
	defer e.portMu.Unlock()
	return e.allocatePortsLocked()
}

// AgentFor returns this device's agent channel, allocating a fresh port
// and a Channel on first use (resolving Open Question 3: a per-device
// port, not agent_manager.rs's single fixed 12345).
func (e *Engine) AgentFor(deviceID string) *agent.Channel {
	e.portMu.Lock()
	defer e.portMu.Unlock()
	if ch, ok := e.agentChannels[deviceID]; ok {
		return ch
	}
	agentPort, _ := e.allocatePortsLocked()
	ch := agent.New(e.client, deviceID, agentPort)
	e.agentChannels[deviceID] = ch
	return ch
}

// StartMirror starts a scrcpy session for deviceID, registering it under
// the single-session-per-kind invariant, and begins forwarding its NAL
// units as scrcpy-frame events.
func (e *Engine) StartMirror(ctx context.Context, deviceID string) (*scrcpy.Session, error) {
	_, scrcpyPort := e.allocatePorts()
	scid := uuid.New().String()[:8]

	sess := scrcpy.NewSession(e.client, deviceID, scid, scrcpyPort)
	if err := e.registry.Insert(deviceID, &mirrorSession{sess: sess}); err != nil {
		return nil, err
	}
	if err := sess.Start(ctx, scrcpy.DefaultOptions()); err != nil {
		_, _ = e.registry.Remove(deviceID, "scrcpy")
		return nil, err
	}

	go e.forwardFrames(deviceID, sess)
	return sess, nil
}

func (e *Engine) forwardFrames(deviceID string, sess *scrcpy.Session) {
	name := fmt.Sprintf("scrcpy-frame-%s", logcatmux.SanitizeDeviceID(deviceID))
	for frame := range sess.Frames() {
		e.emit(Event{Name: name, DeviceID: deviceID, Payload: base64.StdEncoding.EncodeToString(frame.NAL.Bytes)})
	}
}

// StopMirror tears down deviceID's scrcpy session, if any.
func (e *Engine) StopMirror(deviceID string) error {
	return e.registry.RemoveAndClose(deviceID, "scrcpy")
}

// Sync emits the cached SPS/PPS/IDR parameter sets for a newly-subscribed
// viewer, one event per cached set (spec.md section 6:
// "scrcpy-sync-<window-label>-<sanitized-device-id> ... one event per
// cached parameter set").
func (e *Engine) Sync(deviceID, viewerLabel string) error {
	mirror, err := e.mirrorFor(deviceID)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("scrcpy-sync-%s-%s", viewerLabel, logcatmux.SanitizeDeviceID(deviceID))
	for _, paramSet := range mirror.sess.Cache.Snapshot() {
		e.emit(Event{Name: name, DeviceID: deviceID, Payload: base64.StdEncoding.EncodeToString(paramSet)})
	}
	return nil
}

// StartLogcat begins streaming logcat for deviceID, registering it under
// the single-session-per-kind invariant.
func (e *Engine) StartLogcat(ctx context.Context, deviceID string) error {
	if err := e.registry.Insert(deviceID, &logcatSession{mux: e.logs, deviceID: deviceID}); err != nil {
		return err
	}
	if err := e.logs.Start(ctx, deviceID); err != nil {
		_, _ = e.registry.Remove(deviceID, "logcat")
		return err
	}
	return nil
}

// StopLogcat stops deviceID's logcat stream, if any.
func (e *Engine) StopLogcat(deviceID string) error {
	return e.registry.RemoveAndClose(deviceID, "logcat")
}

// mirrorFor fetches deviceID's live scrcpy session, if any, for the
// control-socket senders below.
func (e *Engine) mirrorFor(deviceID string) (*mirrorSession, error) {
	s, ok := e.registry.Get(deviceID, "scrcpy")
	if !ok {
		return nil, errs.New(errs.DeviceNotFound, "no active scrcpy session for device "+deviceID)
	}
	mirror, ok := s.(*mirrorSession)
	if !ok {
		return nil, errs.New(errs.SocketError, "registered session is not a scrcpy session")
	}
	return mirror, nil
}

// SendKeyEvent injects a key down/up event over deviceID's live control
// socket, grounded on the teacher's readPump "key" case (StreamingService.
// SendKeyEvent), now routed through control.InjectKeycode instead of the
// teacher's ad hoc byte packing.
func (e *Engine) SendKeyEvent(deviceID string, action int, keycode, metastate uint32) error {
	mirror, err := e.mirrorFor(deviceID)
	if err != nil {
		return err
	}
	return mirror.sess.SendControl(control.InjectKeycode(action, keycode, metastate))
}

// SendText injects text over deviceID's live control socket.
func (e *Engine) SendText(deviceID, text string) error {
	mirror, err := e.mirrorFor(deviceID)
	if err != nil {
		return err
	}
	return mirror.sess.SendControl(control.InjectText(text))
}

// SendClipboard sets deviceID's clipboard via the on-device agent rather
// than the scrcpy control socket: the v2.7 control protocol's clipboard
// message additionally requires a sequence-numbered ack from the video
// socket that this codebase's control package does not model, while the
// agent's SetClipboard is a plain request/response JSON-RPC call. When
// paste is true, a KEYCODE_PASTE (279) press/release follows over the
// control socket if a mirror session happens to be live, best-effort.
func (e *Engine) SendClipboard(ctx context.Context, deviceID, text string, paste bool) error {
	ch := e.AgentFor(deviceID)
	if _, err := ch.SetClipboard(ctx, text); err != nil {
		return err
	}
	if paste {
		const keycodePaste = 279
		if mirror, err := e.mirrorFor(deviceID); err == nil {
			_ = mirror.sess.SendControl(control.InjectKeycode(control.ActionDown, keycodePaste, 0))
			_ = mirror.sess.SendControl(control.InjectKeycode(control.ActionUp, keycodePaste, 0))
		}
	}
	return nil
}

// Shutdown stops every worker in order: cancel contexts, stop the
// tracker, stop every logcat stream, drain the registry (closing every
// scrcpy/logcat session), issue exactly one `adb kill-server`, then
// join every background goroutine and close the event channel. No event
// is emitted once this method returns (scenario F).
func (e *Engine) Shutdown(ctx context.Context) {
	e.closeMu.Lock()
	e.closed = true
	e.closeMu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.tracker.Stop()
	e.logs.StopAll()

	for _, err := range e.registry.DrainOnShutdown() {
		log.Printf("error tearing down session during shutdown: %v", err)
	}

	if err := e.client.KillServer(ctx); err != nil {
		log.Printf("adb kill-server failed during shutdown: %v", err)
	}

	e.wg.Wait()
	close(e.events)

	log.Println("engine shut down")
}
