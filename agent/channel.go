// Package agent is a client for the on-device JSON-RPC agent: pushes the
// agent JAR, launches it under app_process, forwards a TCP port, and
// speaks newline-delimited JSON request/response over that port.
//
// Grounded on original_source/src-tauri/src/adb/agent_manager.rs
// (AgentManager::start_agent / ensure_agent / send_command and its
// per-command helpers), reworked from tokio's async TcpStream into
// net.Dial with context deadlines, the way the teacher's own code favors
// explicit deadlines over polling.
package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"devicebridge/adb"
	"devicebridge/errs"
)

const (
	agentJarRemotePath = "/data/local/tmp/agent.jar"
	agentMainClass     = "com.devicebridge.agent.Main"

	connectDeadlineInitial   = 1 * time.Second
	connectDeadlinePostStart = 2 * time.Second
	startupSettleDelay       = 1500 * time.Millisecond
)

// Command is one of the defined on-device agent command types (spec.md
// section 4.4).
type Command string

const (
	CmdListFiles    Command = "LIST_FILES"
	CmdGetApps      Command = "GET_APPS"
	CmdGetIcon      Command = "GET_ICON"
	CmdGetStats     Command = "GET_STATS"
	CmdGetClipboard Command = "GET_CLIPBOARD"
	CmdSetClipboard Command = "SET_CLIPBOARD"
	CmdInjectInput  Command = "INJECT_INPUT"
	CmdIndexFiles   Command = "INDEX_FILES"
	CmdSearchFiles  Command = "SEARCH_FILES"
	CmdPing         Command = "PING"
)

// request is the wire envelope: {"type": ..., "data": ...}.
type request struct {
	Type Command     `json:"type"`
	Data interface{} `json:"data"`
}

// response is the wire envelope the agent returns.
type response struct {
	Type Command         `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AgentJarPath is overridable by callers that resolve the JAR from an
// app resource directory; it defaults to the dev-tree-relative layout
// the teacher's binaries/ fallback uses.
var AgentJarPath = "binaries/agent.jar"

// Channel manages one device's agent: ensuring it is running and routing
// request/response exchanges. A connection is opened fresh per request,
// matching the reference design's "not pooled" lifecycle.
type Channel struct {
	client   *adb.Client
	deviceID string
	port     int

	mu sync.Mutex // serializes start_agent attempts for this device
}

// New constructs a Channel bound to one device and port. port is caller-
// chosen (per-device allocation), resolving spec.md's Open Question 3
// against the fixed-12345 reference default.
func New(client *adb.Client, deviceID string, port int) *Channel {
	return &Channel{client: client, deviceID: deviceID, port: port}
}

func (c *Channel) addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.port)
}

// Start pushes the agent JAR, launches it under app_process, forwards the
// port, and waits for it to settle.
func (c *Channel) Start(ctx context.Context) error {
	if err := c.client.PushFile(ctx, c.deviceID, AgentJarPath, agentJarRemotePath); err != nil {
		return errs.Wrap(errs.PushFailed, "failed to push agent.jar", err)
	}

	startCmd := fmt.Sprintf("CLASSPATH=%s app_process / %s %d", agentJarRemotePath, agentMainClass, c.port)
	child, err := c.client.StartStreaming(ctx, append(adbShellArgsPrefix(c.deviceID), startCmd))
	if err != nil {
		return errs.Wrap(errs.ServerStartFailed, "failed to launch agent", err)
	}
	// The agent is long-lived on-device; we don't own its lifetime beyond
	// launch, so the local handle is discarded once spawn succeeds.
	_ = child

	if err := c.client.Forward(ctx, c.deviceID, c.port, fmt.Sprintf("tcp:%d", c.port)); err != nil {
		return err
	}

	select {
	case <-time.After(startupSettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func adbShellArgsPrefix(deviceID string) []string {
	return []string{"-s", deviceID, "shell"}
}

// EnsureAlive implements the ensure-alive protocol: try to connect with a
// 1s deadline; on failure, run Start, then retry with a 2s deadline. A
// second failure is fatal.
func (c *Channel) EnsureAlive(ctx context.Context) (net.Conn, error) {
	if conn, err := dialWithDeadline(c.addr(), connectDeadlineInitial); err == nil {
		return conn, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the lock: another caller may have already restarted
	// the agent while we waited.
	if conn, err := dialWithDeadline(c.addr(), connectDeadlineInitial); err == nil {
		return conn, nil
	}

	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	conn, err := dialWithDeadline(c.addr(), connectDeadlinePostStart)
	if err != nil {
		return nil, errs.Wrap(errs.SocketError, "agent connect failed after restart", err)
	}
	return conn, nil
}

func dialWithDeadline(addr string, deadline time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, deadline)
}

// Send performs exactly one request/response exchange: dial (or restart),
// write one JSON line, read one JSON line, close.
func (c *Channel) Send(ctx context.Context, cmd Command, data interface{}) (json.RawMessage, error) {
	conn, err := c.EnsureAlive(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := request{Type: cmd, Data: data}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, errs.Wrap(errs.SocketError, "failed to encode agent request", err)
	}
	line = append(line, '\n')

	if _, err := conn.Write(line); err != nil {
		return nil, errs.Wrap(errs.SocketError, "failed to write agent request", err)
	}

	reader := bufio.NewReader(conn)
	respLine, err := reader.ReadString('\n')
	if err != nil && respLine == "" {
		return nil, errs.Wrap(errs.SocketError, "failed to read agent response", err)
	}

	var resp response
	if err := json.Unmarshal([]byte(respLine), &resp); err != nil {
		return nil, errs.Wrap(errs.ADBParseError, "failed to parse agent response", err)
	}
	return resp.Data, nil
}

// field extracts a named sub-field from a response's data object,
// returning raw JSON null (absence) as ok=false so callers can substitute
// a typed empty default per spec.md section 4.4.
func field(data json.RawMessage, name string) (json.RawMessage, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, false
	}
	v, ok := obj[name]
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}
