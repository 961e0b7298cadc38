package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"devicebridge/errs"
	"devicebridge/models"
)

// DispatchAction queues a single action for deviceID and returns
// immediately with status "pending"; processActionQueue executes it and
// updates Status/Result asynchronously, the same queue-then-process
// shape as the teacher's ActionDispatcher.DispatchToDevice/
// ProcessActionQueue.
func (e *Engine) DispatchAction(deviceID string, data models.ActionData) (*models.Action, error) {
	e.devMu.Lock()
	dev, known := e.devices[deviceID]
	e.devMu.Unlock()
	if !known {
		return nil, errs.New(errs.DeviceNotFound, "device not found: "+deviceID)
	}
	if dev.Status == models.StatusUnauthorized {
		return nil, errs.New(errs.DeviceUnauthorized, "device requires USB debugging authorization: "+deviceID)
	}

	action := &models.Action{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Type:      data.Type,
		Params:    data.Params,
		Timestamp: time.Now().Unix(),
		Status:    "pending",
	}

	select {
	case e.actionQueue <- action:
		return action, nil
	default:
		return nil, fmt.Errorf("action queue full")
	}
}

// DispatchBatch queues the same action for every device id given,
// skipping (and logging) any that fail to queue rather than aborting the
// whole batch.
func (e *Engine) DispatchBatch(deviceIDs []string, data models.ActionData) []*models.Action {
	actions := make([]*models.Action, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		action, err := e.DispatchAction(id, data)
		if err != nil {
			log.Printf("batch action %s skipped for %s: %v", data.Type, id, err)
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

// executeAction runs one action via the ADB shell facade, grounded on the
// teacher's ActionDispatcher.executeAction switch, with every param
// extraction checked rather than type-asserted unconditionally so
// malformed external input (an HTTP body) cannot panic the worker.
func (e *Engine) executeAction(ctx context.Context, action *models.Action) error {
	switch action.Type {
	case "tap":
		x, okX := intParam(action.Params, "x")
		y, okY := intParam(action.Params, "y")
		if !okX || !okY {
			return fmt.Errorf("tap requires numeric x,y params")
		}
		_, err := e.client.Shell(ctx, action.DeviceID, "input", "tap", itoa(x), itoa(y))
		return err

	case "swipe":
		x1, ok1 := intParam(action.Params, "x1")
		y1, ok2 := intParam(action.Params, "y1")
		x2, ok3 := intParam(action.Params, "x2")
		y2, ok4 := intParam(action.Params, "y2")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return fmt.Errorf("swipe requires numeric x1,y1,x2,y2 params")
		}
		duration, ok := intParam(action.Params, "duration")
		if !ok {
			duration = 300
		}
		_, err := e.client.Shell(ctx, action.DeviceID, "input", "swipe",
			itoa(x1), itoa(y1), itoa(x2), itoa(y2), itoa(duration))
		return err

	case "input":
		text, ok := stringParam(action.Params, "text")
		if !ok {
			return fmt.Errorf("input requires a text param")
		}
		_, err := e.client.Shell(ctx, action.DeviceID, "input", "text", text)
		return err

	case "key":
		keycode, ok := intParam(action.Params, "keycode")
		if !ok {
			return fmt.Errorf("key requires a numeric keycode param")
		}
		_, err := e.client.Shell(ctx, action.DeviceID, "input", "keyevent", itoa(keycode))
		return err

	case "open_app":
		pkg, ok := stringParam(action.Params, "package")
		if !ok {
			return fmt.Errorf("open_app requires a package param")
		}
		_, err := e.client.Shell(ctx, action.DeviceID, "monkey", "-p", pkg,
			"-c", "android.intent.category.LAUNCHER", "1")
		return err

	case "install_apk":
		apkPath, ok := stringParam(action.Params, "apk_path")
		if !ok {
			return fmt.Errorf("install_apk requires an apk_path param")
		}
		return e.client.Install(ctx, action.DeviceID, apkPath, true)

	case "push_file":
		local, ok1 := stringParam(action.Params, "local")
		remote, ok2 := stringParam(action.Params, "remote")
		if !ok1 || !ok2 {
			return fmt.Errorf("push_file requires local and remote params")
		}
		return e.client.PushFile(ctx, action.DeviceID, local, remote)

	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

func intParam(params map[string]interface{}, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64) // encoding/json decodes JSON numbers as float64
	if !ok {
		return 0, false
	}
	return int(f), true
}

func stringParam(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
