package agent

import (
	"bufio"
	"context"
	"net"
	"testing"
)

// fakeAgent is a minimal loopback stand-in for the on-device agent: it
// accepts one connection, reads one line, and writes back a canned
// response, matching the reference design's one-request-per-connection
// lifecycle.
func fakeAgent(t *testing.T, respond func(reqLine string) string) (port int, closeFn func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start fake agent listener: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				reader := bufio.NewReader(c)
				line, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				_, _ = c.Write([]byte(respond(line) + "\n"))
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, func() {
		ln.Close()
		<-done
	}
}

func TestChannel_ListFiles_ScenarioE(t *testing.T) {
	port, closeFn := fakeAgent(t, func(reqLine string) string {
		return `{"type":"LIST_FILES","data":{"files":[{"name":"a"}]}}`
	})
	defer closeFn()

	ch := New(nil, "test-device", port)

	files, err := ch.ListFiles(context.Background(), "/sdcard")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Name != "a" {
		t.Fatalf("expected [{name:a}], got %+v", files)
	}
}

func TestChannel_ListFiles_AbsentFieldReturnsEmptySlice(t *testing.T) {
	port, closeFn := fakeAgent(t, func(reqLine string) string {
		return `{"type":"LIST_FILES","data":{}}`
	})
	defer closeFn()

	ch := New(nil, "test-device", port)

	files, err := ch.ListFiles(context.Background(), "/sdcard")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Fatalf("expected empty non-nil slice, got %+v", files)
	}
}

func TestChannel_ListFiles_NullFieldReturnsEmptySlice(t *testing.T) {
	port, closeFn := fakeAgent(t, func(reqLine string) string {
		return `{"type":"LIST_FILES","data":{"files":null}}`
	})
	defer closeFn()

	ch := New(nil, "test-device", port)

	files, err := ch.ListFiles(context.Background(), "/sdcard")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Fatalf("expected empty non-nil slice, got %+v", files)
	}
}

func TestChannel_Ping(t *testing.T) {
	port, closeFn := fakeAgent(t, func(reqLine string) string {
		return `{"type":"PING","data":{}}`
	})
	defer closeFn()

	ch := New(nil, "test-device", port)
	if err := ch.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChannel_SetClipboard(t *testing.T) {
	port, closeFn := fakeAgent(t, func(reqLine string) string {
		return `{"type":"SET_CLIPBOARD","data":{"success":true}}`
	})
	defer closeFn()

	ch := New(nil, "test-device", port)
	ok, err := ch.SetClipboard(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected success=true")
	}
}
