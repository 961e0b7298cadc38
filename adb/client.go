package adb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"devicebridge/errs"
	"devicebridge/models"
	"devicebridge/process"
)

const adbBinaryName = "adb"

// Client wraps adb execution behind the typed Command surface, caching
// the discovered binary path the way the teacher's ADBClient does but
// with the fuller lookup order original_source's AdbClient::discover_adb
// implements.
type Client struct {
	runner *process.Runner

	once    sync.Once
	adbPath string
}

func NewClient() *Client {
	return &Client{runner: process.NewRunner()}
}

// NewClientWithPath builds a Client pinned to an explicit adb binary
// path, skipping discovery entirely. Intended for tests that stand in a
// harmless script for adb, the same way process/tracker/logcatmux tests
// spawn a real `sh` child instead of mocking the runner.
func NewClientWithPath(path string) *Client {
	c := &Client{runner: process.NewRunner(), adbPath: path}
	c.once.Do(func() {})
	return c
}

// Path returns the discovered adb executable path, resolving it on first
// use and caching it for the lifetime of the Client.
func (c *Client) Path() string {
	c.once.Do(func() {
		c.adbPath = discoverADB()
	})
	return c.adbPath
}

// discoverADB probes, in order: a directory adjacent to this binary, a
// "binaries" sibling, a "resources" sibling, cwd, then falls back to
// searching PATH by bare name.
func discoverADB() string {
	exeName := adbBinaryName
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		candidates := []string{
			filepath.Join(exeDir, exeName),
			filepath.Join(exeDir, "binaries", exeName),
			filepath.Join(exeDir, "resources", exeName),
		}
		for _, p := range candidates {
			if fileExists(p) {
				return p
			}
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, exeName)
		if fileExists(p) {
			return p
		}
	}
	return exeName // resolved via PATH by exec.Command
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// execConfig timeouts, per spec.md section 5's "Timeouts summary".
var (
	listDevicesCfg = process.Config{Timeout: 5 * time.Second, Retries: 2, HideConsole: true}
	startServerCfg = process.Config{Timeout: 10 * time.Second, Retries: 1, HideConsole: true}
	killServerCfg  = process.Config{Timeout: 5 * time.Second, Retries: 1, HideConsole: true}
	versionCfg     = process.Config{Timeout: 3 * time.Second, Retries: 1, HideConsole: true}
	installAPKCfg  = process.Config{Timeout: 120 * time.Second, Retries: 0, HideConsole: true}
	defaultCfg     = process.Config{Timeout: 5 * time.Second, Retries: 0, HideConsole: true}
)

func (c *Client) run(ctx context.Context, args []string, cfg process.Config) (process.Result, error) {
	res, err := c.runner.Execute(ctx, c.Path(), args, cfg)
	if err != nil {
		var timeoutErr *process.TimeoutError
		if errors.As(err, &timeoutErr) {
			return res, errs.Wrap(errs.ADBTimeout, "adb "+args[0]+" timed out", err)
		}
		if code, ok := deviceErrorCode(res.Stderr); ok {
			return res, errs.Wrap(code, "adb "+args[0]+" failed", err)
		}
		return res, errs.Wrap(errs.ADBExecutionFailed, "adb "+args[0]+" failed", err)
	}
	return res, nil
}

// deviceErrorCode recognizes adb's own stderr phrasing for the two logical
// per-device failures ("error: device '<id>' not found", "error: device
// unauthorized", "error: no devices/emulators found") so run() can surface
// errs.DeviceNotFound/errs.DeviceUnauthorized instead of the generic
// ADBExecutionFailed, the way original_source's get_device_prop does for
// the equivalent Rust variant.
func deviceErrorCode(stderr []byte) (errs.Code, bool) {
	s := strings.ToLower(string(stderr))
	switch {
	case strings.Contains(s, "unauthorized"):
		return errs.DeviceUnauthorized, true
	case strings.Contains(s, "device not found"), strings.Contains(s, "no devices/emulators found"), strings.Contains(s, "device offline"),
		strings.Contains(s, "device '") && strings.Contains(s, "' not found"):
		return errs.DeviceNotFound, true
	default:
		return "", false
	}
}

// ListDevices runs `adb devices -l` and parses it into Devices.
func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	res, err := c.run(ctx, Devices(true).args, listDevicesCfg)
	if err != nil {
		return nil, err
	}
	devices, err := ParseDevices(string(res.Stdout))
	if err != nil {
		return nil, errs.Wrap(errs.ADBParseError, "failed to parse adb devices -l", err)
	}
	return devices, nil
}

// GetProp reads a single system property on a device.
func (c *Client) GetProp(ctx context.Context, deviceID, prop string) (string, error) {
	args := NewBuilder().Target(deviceID).Build(GetProp(prop))
	res, err := c.run(ctx, args, defaultCfg)
	if err != nil {
		return "", err
	}
	return trimTrailing(string(res.Stdout)), nil
}

func trimTrailing(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

// EnrichedModel derives the device's friendly model name via the three
// getprop lookups spec.md section 4.2 names.
func (c *Client) EnrichedModel(ctx context.Context, deviceID string) (string, error) {
	marketname, _ := c.GetProp(ctx, deviceID, "ro.product.marketname")
	model, _ := c.GetProp(ctx, deviceID, "ro.product.model")
	brand, _ := c.GetProp(ctx, deviceID, "ro.product.brand")
	return FriendlyModel(marketname, model, brand), nil
}

// StartServer, KillServer, Version are one-shot control commands.
func (c *Client) StartServer(ctx context.Context) error {
	_, err := c.run(ctx, StartServer().args, startServerCfg)
	return err
}

func (c *Client) KillServer(ctx context.Context) error {
	_, err := c.run(ctx, KillServer().args, killServerCfg)
	return err
}

func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.run(ctx, Version().args, versionCfg)
	if err != nil {
		return "", err
	}
	return string(res.Stdout), nil
}

// Reboot, Install, Uninstall, Push, Pull are per-device one-shot commands.
func (c *Client) Reboot(ctx context.Context, deviceID, mode string) error {
	args := NewBuilder().Target(deviceID).Build(Reboot(mode))
	_, err := c.run(ctx, args, defaultCfg)
	return err
}

func (c *Client) Install(ctx context.Context, deviceID, apkPath string, reinstall bool) error {
	args := NewBuilder().Target(deviceID).Build(Install(apkPath, reinstall))
	_, err := c.run(ctx, args, installAPKCfg)
	return err
}

func (c *Client) Uninstall(ctx context.Context, deviceID, pkg string, keepData bool) error {
	args := NewBuilder().Target(deviceID).Build(Uninstall(pkg, keepData))
	_, err := c.run(ctx, args, defaultCfg)
	return err
}

func (c *Client) PushFile(ctx context.Context, deviceID, local, remote string) error {
	args := NewBuilder().Target(deviceID).Build(Push(local, remote))
	_, err := c.run(ctx, args, process.Config{Timeout: 60 * time.Second, Retries: 1, HideConsole: true})
	return err
}

func (c *Client) PullFile(ctx context.Context, deviceID, remote, local string) error {
	args := NewBuilder().Target(deviceID).Build(Pull(remote, local))
	_, err := c.run(ctx, args, process.Config{Timeout: 60 * time.Second, Retries: 1, HideConsole: true})
	return err
}

// Forward sets up a host->device TCP forward to an abstract socket, or to
// a device TCP port when remoteSocket is given as "tcp:<port>".
func (c *Client) Forward(ctx context.Context, deviceID string, localPort int, remoteSocket string) error {
	args := NewBuilder().Target(deviceID).Build(Forward(localPort, remoteSocket))
	_, err := c.run(ctx, args, defaultCfg)
	if err != nil {
		return errs.Wrap(errs.ForwardFailed, "adb forward failed", err)
	}
	return nil
}

func (c *Client) RemoveForward(ctx context.Context, deviceID string, localPort int) error {
	args := NewBuilder().Target(deviceID).Build(RemoveForward(localPort))
	_, err := c.run(ctx, args, defaultCfg)
	return err
}

func (c *Client) RemoveAllForwards(ctx context.Context, deviceID string) error {
	args := NewBuilder().Target(deviceID).Build(RemoveAllForwards())
	_, err := c.run(ctx, args, defaultCfg)
	return err
}

// Shell runs a one-shot shell command and returns combined stdout+stderr,
// since some on-device commands (e.g. `input keyevent`) report
// permission failures on stderr rather than a non-zero exit.
func (c *Client) Shell(ctx context.Context, deviceID string, argv ...string) (string, error) {
	args := NewBuilder().Target(deviceID).Build(Shell(argv...))
	res, err := c.run(ctx, args, defaultCfg)
	if err != nil {
		return "", err
	}
	return string(res.Stdout) + string(res.Stderr), nil
}

// StartStreaming spawns a long-lived shell command (track-devices, logcat,
// the scrcpy server) with stdout piped for streaming consumers.
func (c *Client) StartStreaming(ctx context.Context, args []string) (*process.StreamingChild, error) {
	return c.runner.Start(ctx, c.Path(), args, true)
}
