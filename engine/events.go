package engine

// Event is one boundary-interface notification: a device list change, a
// batch of logcat lines, an extracted video frame, or one cached
// parameter set replayed by Sync. Name follows the sanitized-device-id convention spec.md
// section 6 defines ("logcat-line-<id>", "scrcpy-frame-<id>",
// "scrcpy-sync-<label>-<id>"); Payload is whatever that event carries.
// DeviceID is the unsanitized id, carried alongside Name so api/websocket.go
// can route to subscribed clients by comparing against Client.subscribed
// directly instead of re-parsing Name, the same explicit-deviceID shape
// the teacher's WebSocketHub.BroadcastToDevice(deviceID, message) takes.
// DeviceID is empty for device-changed, which every client receives
// regardless of subscription.
type Event struct {
	Name     string
	DeviceID string
	Payload  interface{}
}
