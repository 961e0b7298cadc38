package scrcpy

import (
	"context"
	"net"
	"testing"
	"time"

	"devicebridge/process"
)

// fakeAdbOps stands in for *adb.Client: PushFile/Forward/Shell are no-ops,
// and StartStreaming spawns a harmless real child (matching the test
// style already used for tracker/logcatmux) since Session only needs a
// StreamingChild handle to hold, not its output.
type fakeAdbOps struct {
	runr *process.Runner
}

func newFakeAdbOps() *fakeAdbOps { return &fakeAdbOps{runr: process.NewRunner()} }

func (f *fakeAdbOps) Shell(ctx context.Context, deviceID string, argv ...string) (string, error) {
	return "", nil
}
func (f *fakeAdbOps) PushFile(ctx context.Context, deviceID, local, remote string) error { return nil }
func (f *fakeAdbOps) Forward(ctx context.Context, deviceID string, localPort int, remoteSocket string) error {
	return nil
}
func (f *fakeAdbOps) StartStreaming(ctx context.Context, args []string) (*process.StreamingChild, error) {
	return f.runr.Start(ctx, "sleep", []string{"5"}, false)
}
func (f *fakeAdbOps) RemoveAllForwards(ctx context.Context, deviceID string) error { return nil }

// fakeScrcpyServer listens on a loopback port and performs the v2.7
// server side of the handshake: the video connection gets a dummy byte,
// a 64-byte name block, and a 12-byte codec header, followed by
// caller-supplied NAL bytes; the control connection is accepted and
// otherwise idle.
func fakeScrcpyServer(t *testing.T, deviceName string, nalStream []byte) (port int, closeFn func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	go func() {
		video, err := ln.Accept()
		if err != nil {
			return
		}
		defer video.Close()

		video.Write([]byte{0x00}) // dummy byte

		nameBlock := make([]byte, deviceNameBlockLen)
		copy(nameBlock, deviceName)
		video.Write(nameBlock)

		video.Write(make([]byte, codecHeaderLen))

		control, err := ln.Accept()
		if err != nil {
			return
		}
		defer control.Close()

		if len(nalStream) > 0 {
			video.Write(nalStream)
		}
		// Keep the connections open a little so the reader observes EOF
		// cleanly rather than a reset.
		time.Sleep(300 * time.Millisecond)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, func() { ln.Close() }
}

func TestSession_StartPerformsHandshake(t *testing.T) {
	sps := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0xaa}
	idr := []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0xbb}
	var nalStream []byte
	nalStream = append(nalStream, sps...)
	nalStream = append(nalStream, idr...)

	port, closeFn := fakeScrcpyServer(t, "pixel-7", nalStream)
	defer closeFn()

	sess := NewSession(newFakeAdbOps(), "test-device", "abcdef01", port)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sess.Start(ctx, DefaultOptions()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sess.Stop(context.Background())

	if sess.DeviceName != "pixel-7" {
		t.Errorf("expected device name %q, got %q", "pixel-7", sess.DeviceName)
	}

	select {
	case frame, ok := <-sess.Frames():
		if !ok {
			t.Fatal("frames channel closed before first frame")
		}
		if frame.NAL.Type != nalTypeSPS {
			t.Errorf("expected first frame to be SPS, got type %d", frame.NAL.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first extracted NAL")
	}

	// The IDR has no trailing start code of its own; it only closes out
	// when the fake server hangs up. readLoop must still finalize and
	// publish it instead of dropping it on EOF.
	select {
	case frame, ok := <-sess.Frames():
		if !ok {
			t.Fatal("frames channel closed before the trailing IDR arrived")
		}
		if frame.NAL.Type != nalTypeIDR {
			t.Errorf("expected second frame to be the IDR, got type %d", frame.NAL.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the trailing IDR to be finalized on EOF")
	}
}

func TestSession_SendControlRequiresConnectedSocket(t *testing.T) {
	sess := NewSession(newFakeAdbOps(), "test-device", "abcdef01", 0)
	if err := sess.SendControl([]byte{0x00}); err == nil {
		t.Fatal("expected error writing to a session with no control socket")
	}
}
