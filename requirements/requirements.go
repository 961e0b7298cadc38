// Package requirements checks a device's settings against what the
// engine needs before an action can run: USB debugging authorization,
// Developer Options, Unknown Sources, and (for input injection) whether
// the device's security settings permit synthetic input events.
//
// Grounded on original_source/src-tauri/src/requirements.rs
// (RequirementCheck/DeviceRequirements/RequirementChecker), translated
// from its builder-style pass()/fail() into plain struct literals.
package requirements

import (
	"context"
	"strings"

	"devicebridge/models"
)

// Check is one named pass/fail result, with a user-facing hint when it
// fails.
type Check struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Passed      bool   `json:"passed"`
	Hint        string `json:"hint,omitempty"`
}

func pass(id, name, description string) Check {
	return Check{ID: id, Name: name, Description: description, Passed: true}
}

func fail(id, name, description, hint string) Check {
	return Check{ID: id, Name: name, Description: description, Passed: false, Hint: hint}
}

// DeviceRequirements bundles every check run against one device.
type DeviceRequirements struct {
	DeviceID  string  `json:"device_id"`
	Checks    []Check `json:"checks"`
	AllPassed bool    `json:"all_passed"`
}

func newDeviceRequirements(deviceID string, checks []Check) DeviceRequirements {
	allPassed := true
	for _, c := range checks {
		if !c.Passed {
			allPassed = false
			break
		}
	}
	return DeviceRequirements{DeviceID: deviceID, Checks: checks, AllPassed: allPassed}
}

// Ops is the subset of *adb.Client a Checker needs, narrowed so tests can
// supply a fake without a real device or adb binary. *adb.Client
// satisfies this implicitly.
type Ops interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	Shell(ctx context.Context, deviceID string, argv ...string) (string, error)
}

// Checker runs requirement checks against a device via Ops.
type Checker struct {
	ops Ops
}

func NewChecker(ops Ops) *Checker {
	return &Checker{ops: ops}
}

// CheckDevice runs the base requirement set: USB debugging, Developer
// Options, and Unknown Sources. The latter two are only probed once USB
// debugging passes, since every other setting read needs an authorized
// shell.
func (c *Checker) CheckDevice(ctx context.Context, deviceID string) DeviceRequirements {
	var checks []Check

	usbDebug := c.checkUSBDebugging(ctx, deviceID)
	checks = append(checks, usbDebug)

	if usbDebug.Passed {
		checks = append(checks, c.checkDeveloperOptions(ctx, deviceID))
		checks = append(checks, c.checkUnknownSources(ctx, deviceID))
	}

	return newDeviceRequirements(deviceID, checks)
}

func (c *Checker) checkUSBDebugging(ctx context.Context, deviceID string) Check {
	const id, name, desc = "usb_debugging", "USB Debugging", "Device must be authorized for debugging"

	devices, err := c.ops.ListDevices(ctx)
	if err != nil {
		return fail(id, name, desc, "Unable to check device status")
	}
	for _, d := range devices {
		if d.ID == deviceID {
			if d.Status == models.StatusAuthorized {
				return pass(id, name, desc)
			}
			return fail(id, name, desc, "Accept the USB debugging prompt on your device, or reconnect the USB cable")
		}
	}
	return fail(id, name, desc, "Device not found. Please reconnect.")
}

func (c *Checker) checkDeveloperOptions(ctx context.Context, deviceID string) Check {
	const id, name, desc = "developer_options", "Developer Options", "Developer Options must be enabled"

	val, err := c.getSetting(ctx, deviceID, "global", "development_settings_enabled")
	if err == nil && val == "1" {
		return pass(id, name, desc)
	}
	return fail(id, name, desc, "Go to Settings > About Phone > Tap Build Number 7 times")
}

func (c *Checker) checkUnknownSources(ctx context.Context, deviceID string) Check {
	const id, name, desc = "unknown_sources", "Install Unknown Apps", "Permission to install apps from unknown sources"

	val, err := c.getSetting(ctx, deviceID, "secure", "install_non_market_apps")
	if err == nil && val == "0" {
		return fail(id, name, desc, "Go to Settings > Security > Enable 'Unknown Sources'")
	}
	return pass(id, name, desc)
}

func (c *Checker) getSetting(ctx context.Context, deviceID, namespace, key string) (string, error) {
	out, err := c.ops.Shell(ctx, deviceID, "settings", "get", namespace, key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CheckActionRequirements probes whether this device's security settings
// allow synthetic input events, which a bare "authorized" status does not
// guarantee: some OEM builds reject INJECT_EVENTS even from an
// authorized, debuggable connection.
func (c *Checker) CheckActionRequirements(ctx context.Context, deviceID string) []Check {
	const id, name, desc = "usb_debug_security", "USB Debugging (Security)", "Required for Input Text and some advanced actions"

	out, err := c.ops.Shell(ctx, deviceID, "input", "keyevent", "0")
	if err != nil {
		return []Check{fail(id, name, desc, "Unable to test input capability")}
	}

	switch {
	case strings.Contains(out, "INJECT_EVENTS") || strings.Contains(out, "SecurityException"):
		return []Check{fail(id, name, desc, "Enable 'USB debugging (Security settings)' in Developer Options")}
	case strings.Contains(out, "Exception") || strings.Contains(out, "error"):
		return []Check{fail(id, name, desc, "Enable 'USB debugging (Security settings)' or 'Disable permission monitoring'")}
	default:
		return []Check{pass(id, name, desc)}
	}
}
