// scrcpy Session: the v2.7 startup handshake and video streaming loop.
//
// Grounded on the teacher's service/scrcpy_client.go (ScrcpyClient.Start's
// push-forward-spawn-connect-handshake ordering, connectWithRetry,
// findFreePort), generalized from its v1.24 wire format (1 dummy byte +
// 64-byte name + 2-byte width + 2-byte height, no scid, control
// disabled, send_frame_meta=false) to the v2.7 format spec.md section 4.6
// specifies: scid-qualified forward socket, a control socket in addition
// to the video socket, a 12-byte codec header after the 64-byte name
// block, and no width/height in the handshake (resolution travels in the
// codec header instead; frame metadata stays disabled).
package scrcpy

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"devicebridge/errs"
	"devicebridge/process"
)

const (
	serverVersion       = "2.7"
	serverJarRemotePath = "/data/local/tmp/scrcpy-server.jar"
	serverClassName     = "com.genymobile.scrcpy.Server"
	deviceNameBlockLen  = 64
	codecHeaderLen      = 12
	connectAttempts     = 10
	connectAttemptDelay = 500 * time.Millisecond
	preSpawnSettleDelay = 1 * time.Second
	socketReadTimeout   = 5 * time.Second
)

// AdbOps is the subset of *adb.Client a Session needs, narrowed to an
// interface so tests can substitute a fake scrcpy server without a real
// device or adb binary.
type AdbOps interface {
	Shell(ctx context.Context, deviceID string, argv ...string) (string, error)
	PushFile(ctx context.Context, deviceID, local, remote string) error
	Forward(ctx context.Context, deviceID string, localPort int, remoteSocket string) error
	StartStreaming(ctx context.Context, args []string) (*process.StreamingChild, error)
	RemoveAllForwards(ctx context.Context, deviceID string) error
}

// JarPath is overridable by callers that resolve the server JAR from an
// app resource directory; it defaults to the dev-tree-relative fallback
// spec.md section 4.6 names ("mirrors section 4.2").
var JarPath = "binaries/scrcpy-server.jar"

// Options configures one scrcpy session's server-side flags.
type Options struct {
	MaxSize              int
	MaxFPS               int
	LockVideoOrientation int
	DisplayID            int
	ShowTouches          bool
	StayAwake            bool
	PowerOffOnClose      bool
	Cleanup              bool
	PowerOn              bool
}

// DefaultOptions mirrors the reference flag set from spec.md section 4.6.
func DefaultOptions() Options {
	return Options{
		MaxSize:              0,
		MaxFPS:               60,
		LockVideoOrientation: -1,
		DisplayID:            0,
		ShowTouches:          false,
		StayAwake:            true,
		PowerOffOnClose:      false,
		Cleanup:              true,
		PowerOn:              true,
	}
}

// Frame is one extracted NAL unit, ready to be fanned out to viewers.
type Frame struct {
	NAL NAL
}

// Session is one device's live scrcpy connection: a video socket, a
// control socket, and the background reader that extracts and caches
// NAL units.
type Session struct {
	client   AdbOps
	deviceID string
	scid     string
	port     int

	videoConn   net.Conn
	controlConn net.Conn
	serverChild *process.StreamingChild

	DeviceName string
	Cache      ParamCache

	frames  chan Frame
	running atomic.Bool
}

// NewSession constructs a Session. scid must be an 8-hex-digit string
// unique among concurrently running sessions (spec.md section 4.6 step
// 3); port is the host TCP port to forward through ADB.
func NewSession(client AdbOps, deviceID, scid string, port int) *Session {
	return &Session{
		client:   client,
		deviceID: deviceID,
		scid:     scid,
		port:     port,
		frames:   make(chan Frame, 256),
	}
}

// Frames returns the channel extracted NAL units are published on, in
// arrival order.
func (s *Session) Frames() <-chan Frame { return s.frames }

// Start runs the ordered startup sequence: kill any prior instance, push
// the server JAR, forward the port, spawn the server, connect the video
// and control sockets, and read the device-name and codec-header blocks.
// Every step's failure is fatal to the attempt.
func (s *Session) Start(ctx context.Context, opts Options) error {
	// A non-zero exit here just means no prior instance was running.
	_, _ = s.client.Shell(ctx, s.deviceID, "pkill", "-f", "scrcpy")

	if err := s.client.PushFile(ctx, s.deviceID, JarPath, serverJarRemotePath); err != nil {
		return errs.Wrap(errs.PushFailed, "failed to push scrcpy-server.jar", err)
	}

	remoteSocket := fmt.Sprintf("scrcpy_%s", s.scid)
	if err := s.client.Forward(ctx, s.deviceID, s.port, remoteSocket); err != nil {
		return err
	}

	child, err := s.client.StartStreaming(ctx, s.serverArgv(opts))
	if err != nil {
		return errs.Wrap(errs.ServerStartFailed, "failed to spawn scrcpy server", err)
	}
	s.serverChild = child

	select {
	case <-time.After(preSpawnSettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	videoConn, err := s.connectWithRetry()
	if err != nil {
		return errs.Wrap(errs.SocketError, "failed to connect scrcpy video socket", err)
	}
	// Exactly one dummy byte on the video socket before anything else.
	dummy := make([]byte, 1)
	if _, err := io.ReadFull(videoConn, dummy); err != nil {
		videoConn.Close()
		return errs.Wrap(errs.SocketError, "failed to read scrcpy dummy byte", err)
	}
	s.videoConn = videoConn

	controlConn, err := net.DialTimeout("tcp", s.addr(), 2*time.Second)
	if err != nil {
		s.teardownSockets()
		return errs.Wrap(errs.ControlSocketError, "failed to connect scrcpy control socket", err)
	}
	s.controlConn = controlConn
	setNoDelay(s.videoConn)
	setNoDelay(s.controlConn)

	nameBlock := make([]byte, deviceNameBlockLen)
	if _, err := io.ReadFull(s.videoConn, nameBlock); err != nil {
		s.teardownSockets()
		return errs.Wrap(errs.SocketError, "failed to read device-name block", err)
	}
	s.DeviceName = strings.TrimRight(string(nameBlock), "\x00")

	codecHeader := make([]byte, codecHeaderLen)
	if _, err := io.ReadFull(s.videoConn, codecHeader); err != nil {
		s.teardownSockets()
		return errs.Wrap(errs.SocketError, "failed to read codec header", err)
	}

	s.running.Store(true)
	go s.readLoop()
	return nil
}

func (s *Session) addr() string {
	return fmt.Sprintf("127.0.0.1:%d", s.port)
}

func (s *Session) serverArgv(opts Options) []string {
	boolStr := func(b bool) string {
		if b {
			return "true"
		}
		return "false"
	}
	args := []string{
		"-s", s.deviceID, "shell",
		fmt.Sprintf("CLASSPATH=%s", serverJarRemotePath),
		"app_process", "/", serverClassName, serverVersion,
		fmt.Sprintf("scid=%s", s.scid),
		"log_level=verbose",
		fmt.Sprintf("max_size=%d", opts.MaxSize),
		fmt.Sprintf("max_fps=%d", opts.MaxFPS),
		fmt.Sprintf("lock_video_orientation=%d", opts.LockVideoOrientation),
		"tunnel_forward=true",
		"send_frame_meta=false",
		"control=true",
		fmt.Sprintf("display_id=%d", opts.DisplayID),
		fmt.Sprintf("show_touches=%s", boolStr(opts.ShowTouches)),
		fmt.Sprintf("stay_awake=%s", boolStr(opts.StayAwake)),
		fmt.Sprintf("power_off_on_close=%s", boolStr(opts.PowerOffOnClose)),
		fmt.Sprintf("cleanup=%s", boolStr(opts.Cleanup)),
		fmt.Sprintf("power_on=%s", boolStr(opts.PowerOn)),
		"audio=false",
		"video=true",
	}
	return args
}

func (s *Session) connectWithRetry() (net.Conn, error) {
	var lastErr error
	for i := 0; i < connectAttempts; i++ {
		conn, err := net.DialTimeout("tcp", s.addr(), 2*time.Second)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(connectAttemptDelay)
	}
	return nil, lastErr
}

func setNoDelay(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
}

// readLoop reads the video socket into a 64KiB scratch buffer, appends
// to an unbounded accumulator, and repeatedly extracts whole NAL units,
// updating the parameter cache and publishing each on Frames() in
// arrival order. A 5s read timeout does not end the session; only a
// short read (peer close) does, at which point the last pending unit
// still sitting in the accumulator (typically the IDR, which closes on
// EOF rather than a following start code) is finalized and published
// before the loop exits, so the stream's final NAL is never dropped.
func (s *Session) readLoop() {
	defer close(s.frames)
	defer s.teardownSockets()

	var accumulator []byte
	scratch := make([]byte, 64*1024)

	for s.running.Load() {
		_ = s.videoConn.SetReadDeadline(time.Now().Add(socketReadTimeout))
		n, err := s.videoConn.Read(scratch)
		if n > 0 {
			accumulator = append(accumulator, scratch[:n]...)

			units, remainderFrom := ExtractNALs(accumulator)
			for _, u := range units {
				s.publish(u)
			}
			accumulator = append([]byte(nil), accumulator[remainderFrom:]...)
		}

		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if u, ok := FinalizeTrailingNAL(accumulator); ok {
				s.publish(u)
			}
			return
		}
	}
}

// publish records u in the parameter cache and fans it out to Frames(),
// dropping rather than blocking the reader if no consumer is keeping up.
func (s *Session) publish(u NAL) {
	s.Cache.Observe(u)
	select {
	case s.frames <- Frame{NAL: u}:
	default:
	}
}

// SendControl writes a pre-serialized control message to the control
// socket.
func (s *Session) SendControl(msg []byte) error {
	if s.controlConn == nil {
		return errs.New(errs.ControlSocketError, "control socket not connected")
	}
	if _, err := s.controlConn.Write(msg); err != nil {
		return errs.Wrap(errs.ControlWriteFailed, "failed to write control message", err)
	}
	return nil
}

func (s *Session) teardownSockets() {
	if s.videoConn != nil {
		s.videoConn.Close()
	}
	if s.controlConn != nil {
		s.controlConn.Close()
	}
}

// Stop flips the streaming flag, closes both sockets, kills the server
// process on-device, and removes all ADB forwards for this device.
func (s *Session) Stop(ctx context.Context) {
	s.running.Store(false)
	s.teardownSockets()

	if s.serverChild != nil {
		s.serverChild.Kill()
		_ = s.serverChild.Wait()
	}

	_, _ = s.client.Shell(ctx, s.deviceID, "pkill", "-f", "scrcpy")
	_ = s.client.RemoveAllForwards(ctx, s.deviceID)
}
