package adb

import (
	"strconv"
	"strings"

	"devicebridge/models"
)

// ParseDevices parses the output of `adb devices -l`. It is a pure
// function so it can be exercised without a subprocess (spec.md testable
// property 1 and scenario A).
func ParseDevices(output string) ([]models.Device, error) {
	lines := strings.Split(output, "\n")
	var devices []models.Device

	for i, line := range lines {
		if i == 0 {
			continue // banner: "List of devices attached"
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		id := parts[0]
		rawStatus := parts[1]
		status := models.StatusFromString(rawStatus)

		d := models.Device{ID: id, Status: status}
		if status == models.StatusUnknown {
			d.RawState = rawStatus
		}

		for _, part := range parts[2:] {
			switch {
			case strings.HasPrefix(part, "model:"):
				d.Model = strings.TrimPrefix(part, "model:")
			case strings.HasPrefix(part, "product:"):
				d.Product = strings.TrimPrefix(part, "product:")
			}
		}

		devices = append(devices, d)
	}

	return devices, nil
}

// FriendlyModel assembles a human-facing model name from the three
// getprop values spec.md section 4.2 names, following
// original_source/src-tauri/src/adb/discovery.rs's get_device_model_info:
// prefer marketname, fall back to model; prefix with a title-cased brand
// unless the model already starts with it.
func FriendlyModel(marketname, model, brand string) string {
	m := marketname
	if m == "" {
		m = model
	}
	m = strings.TrimSpace(m)
	brand = strings.TrimSpace(brand)

	switch {
	case m == "" && brand == "":
		return ""
	case m == "":
		return brand
	case brand == "":
		return m
	}

	if strings.HasPrefix(strings.ToLower(m), strings.ToLower(brand)) {
		return m
	}
	return titleCase(brand) + " " + m
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

// ParseBatteryLevel extracts the "level:" field from `dumpsys battery`.
func ParseBatteryLevel(output string) (int, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "level:") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		return level, nil
	}
	return 0, errBatteryNotFound
}

// ParseScreenResolution prefers "Override size" over "Physical size" from
// `wm size` output.
func ParseScreenResolution(output string) string {
	var physical, override string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if idx := strings.Index(line, "Physical size:"); idx >= 0 {
			physical = strings.TrimSpace(line[idx+len("Physical size:"):])
		}
		if idx := strings.Index(line, "Override size:"); idx >= 0 {
			override = strings.TrimSpace(line[idx+len("Override size:"):])
		}
	}
	if override != "" {
		return override
	}
	return physical
}

type batteryNotFoundError struct{}

func (batteryNotFoundError) Error() string { return "battery level not found" }

var errBatteryNotFound = batteryNotFoundError{}
