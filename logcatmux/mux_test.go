package logcatmux

import (
	"context"
	"fmt"
	"testing"
	"time"

	"devicebridge/process"
)

type fakeSource struct {
	runr   *process.Runner
	script string
}

func (f *fakeSource) StartStreaming(ctx context.Context, args []string) (*process.StreamingChild, error) {
	return f.runr.Start(ctx, "sh", []string{"-c", f.script}, false)
}

func TestMultiplexer_BatchesByCount(t *testing.T) {
	script := ""
	for i := 0; i < 120; i++ {
		script += fmt.Sprintf("echo 'line %d'; ", i)
	}
	script += "sleep 2"

	src := &fakeSource{runr: process.NewRunner(), script: script}
	mux := New(src)

	if err := mux.Start(context.Background(), "devA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer mux.StopAll()

	total := 0
	timeout := time.After(3 * time.Second)
	for total < 120 {
		select {
		case b := <-mux.Batches():
			if len(b.Lines) > batchMaxLines {
				t.Fatalf("batch exceeded max lines: got %d", len(b.Lines))
			}
			total += len(b.Lines)
		case <-timeout:
			t.Fatalf("timed out waiting for lines, got %d/120", total)
		}
	}
}

func TestMultiplexer_FlushesOnTimeWithFewLines(t *testing.T) {
	src := &fakeSource{runr: process.NewRunner(), script: "echo one; echo two; sleep 2"}
	mux := New(src)

	if err := mux.Start(context.Background(), "devB"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer mux.StopAll()

	select {
	case b := <-mux.Batches():
		if len(b.Lines) != 2 {
			t.Fatalf("expected 2 lines in the time-flushed batch, got %d", len(b.Lines))
		}
	case <-time.After(1 * time.Second):
		t.Fatal("expected a time-based flush within 1s")
	}
}

func TestMultiplexer_SkipsEmptyAndBeginningOfLines(t *testing.T) {
	script := `echo ''; echo '--------- beginning of main'; echo 'real line'; sleep 2`
	src := &fakeSource{runr: process.NewRunner(), script: script}
	mux := New(src)

	if err := mux.Start(context.Background(), "devC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer mux.StopAll()

	select {
	case b := <-mux.Batches():
		if len(b.Lines) != 1 || b.Lines[0] != "real line" {
			t.Fatalf("expected only [\"real line\"], got %+v", b.Lines)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("expected a batch within 1s")
	}
}

func TestMultiplexer_StartKillsExistingStream(t *testing.T) {
	src := &fakeSource{runr: process.NewRunner(), script: "sleep 5"}
	mux := New(src)

	if err := mux.Start(context.Background(), "devD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := mux.streams["devD"]

	if err := mux.Start(context.Background(), "devD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer mux.StopAll()

	second := mux.streams["devD"]
	if first == second {
		t.Fatal("expected second Start to replace the stream entry")
	}
}

func TestSanitizeDeviceID(t *testing.T) {
	got := SanitizeDeviceID("192.168.1.5:5555")
	want := "192_168_1_5_5555"
	if got != want {
		t.Errorf("SanitizeDeviceID() = %q, want %q", got, want)
	}
}
