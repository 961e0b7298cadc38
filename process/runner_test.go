package process

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecute_TimeoutKillsChild(t *testing.T) {
	r := NewRunner()
	start := time.Now()

	_, err := r.Execute(context.Background(), "sleep", []string{"5"}, Config{Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected a *TimeoutError, got %T: %v", err, err)
	}
	if timeoutErr.Name != "sleep" || timeoutErr.Timeout != 200*time.Millisecond {
		t.Errorf("unexpected TimeoutError fields: %+v", timeoutErr)
	}

	elapsed := time.Since(start)
	if elapsed > 2*time.Second {
		t.Fatalf("Execute did not return promptly after timeout: took %s", elapsed)
	}
}

func TestExecute_NonZeroExitNotRetried(t *testing.T) {
	r := NewRunner()

	res, err := r.Execute(context.Background(), "false", nil, Config{Timeout: time.Second, Retries: 3})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if res.ExitCode == 0 {
		t.Fatalf("expected non-zero exit code, got %d", res.ExitCode)
	}
}

func TestExecute_CapturesStdout(t *testing.T) {
	r := NewRunner()

	res, err := r.Execute(context.Background(), "echo", []string{"hello"}, Config{Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Stdout) != "hello\n" {
		t.Errorf("expected stdout %q, got %q", "hello\n", res.Stdout)
	}
}
