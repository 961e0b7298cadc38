package requirements

import (
	"context"
	"testing"

	"devicebridge/models"
)

type fakeOps struct {
	devices []models.Device
	shellFn func(deviceID string, argv []string) (string, error)
}

func (f *fakeOps) ListDevices(ctx context.Context) ([]models.Device, error) {
	return f.devices, nil
}

func (f *fakeOps) Shell(ctx context.Context, deviceID string, argv ...string) (string, error) {
	return f.shellFn(deviceID, argv)
}

func TestCheckDevice_AllPass(t *testing.T) {
	ops := &fakeOps{
		devices: []models.Device{{ID: "dev1", Status: models.StatusAuthorized}},
		shellFn: func(deviceID string, argv []string) (string, error) {
			switch argv[3] {
			case "development_settings_enabled":
				return "1\n", nil
			case "install_non_market_apps":
				return "1\n", nil
			}
			return "", nil
		},
	}

	got := NewChecker(ops).CheckDevice(context.Background(), "dev1")
	if !got.AllPassed {
		t.Fatalf("expected all checks to pass, got %+v", got.Checks)
	}
	if len(got.Checks) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(got.Checks))
	}
}

func TestCheckDevice_UnauthorizedSkipsFollowupChecks(t *testing.T) {
	ops := &fakeOps{
		devices: []models.Device{{ID: "dev1", Status: models.StatusUnauthorized}},
		shellFn: func(deviceID string, argv []string) (string, error) {
			t.Fatal("should not probe settings on an unauthorized device")
			return "", nil
		},
	}

	got := NewChecker(ops).CheckDevice(context.Background(), "dev1")
	if got.AllPassed {
		t.Fatal("expected AllPassed to be false")
	}
	if len(got.Checks) != 1 {
		t.Fatalf("expected exactly the USB debugging check, got %d", len(got.Checks))
	}
	if got.Checks[0].Hint == "" {
		t.Error("expected a hint on the failed check")
	}
}

func TestCheckDevice_DeviceNotFound(t *testing.T) {
	ops := &fakeOps{devices: nil}
	got := NewChecker(ops).CheckDevice(context.Background(), "missing")
	if got.AllPassed {
		t.Fatal("expected AllPassed false for a missing device")
	}
	if got.Checks[0].ID != "usb_debugging" {
		t.Errorf("expected usb_debugging check, got %q", got.Checks[0].ID)
	}
}

func TestCheckActionRequirements_SecurityExceptionFails(t *testing.T) {
	ops := &fakeOps{
		shellFn: func(deviceID string, argv []string) (string, error) {
			return "java.lang.SecurityException: Injecting to another application requires INJECT_EVENTS permission", nil
		},
	}

	checks := NewChecker(ops).CheckActionRequirements(context.Background(), "dev1")
	if len(checks) != 1 || checks[0].Passed {
		t.Fatalf("expected a single failing check, got %+v", checks)
	}
}

func TestCheckActionRequirements_CleanOutputPasses(t *testing.T) {
	ops := &fakeOps{
		shellFn: func(deviceID string, argv []string) (string, error) {
			return "", nil
		},
	}

	checks := NewChecker(ops).CheckActionRequirements(context.Background(), "dev1")
	if len(checks) != 1 || !checks[0].Passed {
		t.Fatalf("expected a single passing check, got %+v", checks)
	}
}
