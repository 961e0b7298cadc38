package adb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"devicebridge/errs"
)

// newFakeAdbScript writes a small shell script standing in for the real adb
// binary, matching the real-subprocess test style used throughout this repo
// (tracker, logcatmux, process) instead of mocking the runner.
func newFakeAdbScript(t *testing.T, scriptBody string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "adb")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+scriptBody+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake adb script: %v", err)
	}
	return path
}

func TestRun_DeviceNotFoundTranslatesStderr(t *testing.T) {
	path := newFakeAdbScript(t, `echo "error: device 'X1' not found" 1>&2; exit 1`)
	c := NewClientWithPath(path)

	_, err := c.GetProp(context.Background(), "X1", "ro.product.model")
	var e *errs.E
	if !errors.As(err, &e) {
		t.Fatalf("expected *errs.E, got %T: %v", err, err)
	}
	if e.Code != errs.DeviceNotFound {
		t.Errorf("expected errs.DeviceNotFound, got %s", e.Code)
	}
}

func TestRun_UnauthorizedTranslatesStderr(t *testing.T) {
	path := newFakeAdbScript(t, `echo "error: device unauthorized" 1>&2; exit 1`)
	c := NewClientWithPath(path)

	_, err := c.GetProp(context.Background(), "X1", "ro.product.model")
	var e *errs.E
	if !errors.As(err, &e) {
		t.Fatalf("expected *errs.E, got %T: %v", err, err)
	}
	if e.Code != errs.DeviceUnauthorized {
		t.Errorf("expected errs.DeviceUnauthorized, got %s", e.Code)
	}
}

func TestRun_GenericFailureStaysADBExecutionFailed(t *testing.T) {
	path := newFakeAdbScript(t, `echo "something else went wrong" 1>&2; exit 1`)
	c := NewClientWithPath(path)

	_, err := c.GetProp(context.Background(), "X1", "ro.product.model")
	var e *errs.E
	if !errors.As(err, &e) {
		t.Fatalf("expected *errs.E, got %T: %v", err, err)
	}
	if e.Code != errs.ADBExecutionFailed {
		t.Errorf("expected errs.ADBExecutionFailed, got %s", e.Code)
	}
}

func TestRun_TimeoutTranslatesToADBTimeout(t *testing.T) {
	orig := defaultCfg
	defaultCfg.Timeout = 200 * time.Millisecond
	defer func() { defaultCfg = orig }()

	path := newFakeAdbScript(t, `sleep 5`)
	c := NewClientWithPath(path)

	_, err := c.GetProp(context.Background(), "X1", "ro.product.model")
	var e *errs.E
	if !errors.As(err, &e) {
		t.Fatalf("expected *errs.E, got %T: %v", err, err)
	}
	if e.Code != errs.ADBTimeout {
		t.Errorf("expected errs.ADBTimeout, got %s", e.Code)
	}
}
