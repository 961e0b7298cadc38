package adb

import (
	"testing"

	"devicebridge/models"
)

func TestParseDevices_Idempotent(t *testing.T) {
	output := "List of devices attached\n" +
		"emulator-5554\tdevice product:sdk_gphone64_x86_64 model:sdk_gphone64_x86_64\n" +
		"R3CN90ABCDE\tunauthorized\n" +
		"\n"

	first, err := ParseDevices(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ParseDevices(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !models.EqualSet(first, second) {
		t.Fatalf("ParseDevices is not idempotent: %+v != %+v", first, second)
	}
}

func TestParseDevices_ScenarioA(t *testing.T) {
	output := "List of devices attached\n" +
		"emulator-5554          device product:sdk model:sdk_phone\n"

	devices, err := ParseDevices(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}

	want := models.Device{
		ID:      "emulator-5554",
		Status:  models.StatusAuthorized,
		Model:   "sdk_phone",
		Product: "sdk",
	}
	got := devices[0]
	if !got.Equal(want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseDevices_UnauthorizedAndOffline(t *testing.T) {
	output := "List of devices attached\n" +
		"ABC123\tunauthorized\n" +
		"DEF456\toffline\n" +
		"GHI789\tweirdstate\n"

	devices, err := ParseDevices(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(devices))
	}

	if devices[0].Status != models.StatusUnauthorized {
		t.Errorf("expected unauthorized, got %s", devices[0].Status)
	}
	if devices[1].Status != models.StatusOffline {
		t.Errorf("expected offline, got %s", devices[1].Status)
	}
	if devices[2].Status != models.StatusUnknown || devices[2].RawState != "weirdstate" {
		t.Errorf("expected unknown/weirdstate, got %s/%s", devices[2].Status, devices[2].RawState)
	}
}

func TestParseDevices_EmptyOutput(t *testing.T) {
	devices, err := ParseDevices("List of devices attached\n\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("expected no devices, got %d", len(devices))
	}
}

func TestFriendlyModel_ScenarioB(t *testing.T) {
	got := FriendlyModel("", "Pixel 7", "google")
	want := "Google Pixel 7"
	if got != want {
		t.Errorf("FriendlyModel() = %q, want %q", got, want)
	}
}

func TestFriendlyModel_PrefersMarketname(t *testing.T) {
	got := FriendlyModel("Galaxy S23 Ultra", "SM-S918B", "samsung")
	want := "Samsung Galaxy S23 Ultra"
	if got != want {
		t.Errorf("FriendlyModel() = %q, want %q", got, want)
	}
}

func TestFriendlyModel_ModelAlreadyPrefixedWithBrand(t *testing.T) {
	got := FriendlyModel("", "OnePlus 11", "oneplus")
	want := "OnePlus 11"
	if got != want {
		t.Errorf("FriendlyModel() = %q, want %q", got, want)
	}
}

func TestFriendlyModel_EmptyInputs(t *testing.T) {
	if got := FriendlyModel("", "", ""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := FriendlyModel("", "", "google"); got != "google" {
		t.Errorf("expected brand alone, got %q", got)
	}
}

func TestParseBatteryLevel(t *testing.T) {
	output := "Current Battery Service state:\n" +
		"  AC powered: false\n" +
		"  USB powered: true\n" +
		"  level: 87\n" +
		"  scale: 100\n"

	level, err := ParseBatteryLevel(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != 87 {
		t.Errorf("expected 87, got %d", level)
	}
}

func TestParseBatteryLevel_NotFound(t *testing.T) {
	_, err := ParseBatteryLevel("no useful data here\n")
	if err == nil {
		t.Fatal("expected error when level: is absent")
	}
}

func TestParseScreenResolution_PrefersOverride(t *testing.T) {
	output := "Physical size: 1080x2340\nOverride size: 720x1560\n"
	got := ParseScreenResolution(output)
	if got != "720x1560" {
		t.Errorf("expected override size, got %q", got)
	}
}

func TestParseScreenResolution_FallsBackToPhysical(t *testing.T) {
	output := "Physical size: 1080x2340\n"
	got := ParseScreenResolution(output)
	if got != "1080x2340" {
		t.Errorf("expected physical size, got %q", got)
	}
}
