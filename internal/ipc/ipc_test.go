package ipc

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/efosmark/swayipc/internal/protocol"
	"github.com/efosmark/swayipc/internal/protocol/frame"
	"github.com/efosmark/swayipc/internal/testutil/testlog"
)

// startServer listens on a throwaway unix socket and hands the first
// accepted connection to handle on its own goroutine.
func startServer(t *testing.T, handle func(conn net.Conn)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sway-ipc.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()
	return path
}

func mustWriteFrame(t *testing.T, w io.Writer, kind protocol.MessageKind, payload string) {
	t.Helper()
	buf, err := frame.Encode(kind, []byte(payload))
	if err != nil {
		t.Errorf("encode: %v", err)
		return
	}
	if _, err := w.Write(buf); err != nil {
		t.Errorf("server write: %v", err)
	}
}

// mustReadFrame is the server-side reader; it trusts the client's framing.
func mustReadFrame(t *testing.T, r io.Reader) frame.Frame {
	t.Helper()
	header := make([]byte, frame.HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		t.Errorf("server read header: %v", err)
		return frame.Frame{}
	}
	length := binary.LittleEndian.Uint32(header[6:10])
	kind := protocol.MessageKind(binary.LittleEndian.Uint32(header[10:14]))
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		t.Errorf("server read payload: %v", err)
		return frame.Frame{}
	}
	return frame.Frame{Kind: kind, Payload: payload}
}

func TestSocketPathResolutionOrder(t *testing.T) {
	testlog.Start(t)
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv(EnvSwaySock, "/from/swaysock")
	t.Setenv(EnvI3Sock, "/from/i3sock")

	if p, err := SocketPath("/explicit"); err != nil || p != "/explicit" {
		t.Fatalf("explicit: p=%q err=%v", p, err)
	}
	if p, err := SocketPath(""); err != nil || p != "/from/swaysock" {
		t.Fatalf("swaysock: p=%q err=%v", p, err)
	}

	t.Setenv(EnvSwaySock, "")
	if p, err := SocketPath(""); err != nil || p != "/from/i3sock" {
		t.Fatalf("i3sock: p=%q err=%v", p, err)
	}

	t.Setenv(EnvI3Sock, "")
	if _, err := SocketPath(""); !errors.Is(err, ErrNoSocketPath) {
		t.Fatalf("no path: err = %v, want ErrNoSocketPath", err)
	}
}

func TestConnectMissingSocket(t *testing.T) {
	testlog.Start(t)
	_, err := Connect(filepath.Join(t.TempDir(), "absent.sock"))
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("err = %v, want ErrConnect", err)
	}
}

func TestConnectResolvesFromEnv(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {
		mustReadFrame(t, conn)
		mustWriteFrame(t, conn, protocol.GetVersion, `{"major":1}`)
	})
	t.Setenv(EnvSwaySock, path)

	tr, err := Connect("")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Close()

	if err := tr.SendFrame(protocol.GetVersion, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	f, err := tr.ReceiveFrame()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if f.Kind != protocol.GetVersion || string(f.Payload) != `{"major":1}` {
		t.Fatalf("frame = %+v", f)
	}
}

func TestReceiveFrameChunkedArrival(t *testing.T) {
	testlog.Start(t)
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	tr := NewTransport(client)

	whole, err := frame.Encode(protocol.EventWindow, []byte(`{"change":"new"}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	go func() {
		for _, b := range whole {
			if _, err := server.Write([]byte{b}); err != nil {
				return
			}
		}
	}()

	f, err := tr.ReceiveFrame()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if f.Kind != protocol.EventWindow || string(f.Payload) != `{"change":"new"}` {
		t.Fatalf("frame = %+v", f)
	}
}

func TestReceiveFrameLeavesExcessBuffered(t *testing.T) {
	testlog.Start(t)
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	tr := NewTransport(client)

	first, _ := frame.Encode(protocol.EventTick, []byte(`{"first":true}`))
	second, _ := frame.Encode(protocol.EventTick, []byte(`{"first":false}`))
	go func() {
		_, _ = server.Write(append(append([]byte(nil), first...), second...))
	}()

	f1, err := tr.ReceiveFrame()
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}
	// The second frame must come from the buffer, not another read.
	_ = server.Close()
	f2, err := tr.ReceiveFrame()
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if string(f1.Payload) != `{"first":true}` || string(f2.Payload) != `{"first":false}` {
		t.Fatalf("payloads = %q, %q", f1.Payload, f2.Payload)
	}
	if len(tr.buf) != 0 {
		t.Fatalf("%d bytes left in receive buffer", len(tr.buf))
	}
}

func TestReceiveFramePeerClosed(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {})

	tr, err := Connect(path)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Close()

	if _, err := tr.ReceiveFrame(); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("err = %v, want ErrConnectionClosed", err)
	}
}

func TestReceiveFrameTimeoutLeavesConnectionUsable(t *testing.T) {
	testlog.Start(t)
	release := make(chan struct{})
	path := startServer(t, func(conn net.Conn) {
		<-release
		mustWriteFrame(t, conn, protocol.EventShutdown, `{"change":"exit"}`)
		// Hold the connection open until the test is done reading.
		<-release
	})

	tr, err := Connect(path)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Close()
	defer close(release)

	tr.SetReceiveTimeout(50 * time.Millisecond)
	if _, err := tr.ReceiveFrame(); !errors.Is(err, ErrReceiveTimeout) {
		t.Fatalf("err = %v, want ErrReceiveTimeout", err)
	}

	release <- struct{}{}
	tr.SetReceiveTimeout(2 * time.Second)
	f, err := tr.ReceiveFrame()
	if err != nil {
		t.Fatalf("receive after timeout: %v", err)
	}
	if f.Kind != protocol.EventShutdown {
		t.Fatalf("kind = %v", f.Kind)
	}
}

func TestReceiveFrameBadMagic(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("definitely not an ipc frame"))
	})

	tr, err := Connect(path)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Close()

	if _, err := tr.ReceiveFrame(); !errors.Is(err, protocol.ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestCallRunCommandEndToEnd(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {
		req := mustReadFrame(t, conn)
		if req.Kind != protocol.RunCommand || string(req.Payload) != "floating toggle" {
			t.Errorf("request = %+v", req)
		}
		mustWriteFrame(t, conn, protocol.RunCommand, `[{"success":true}]`)
	})

	client, err := Dial(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ok, raw, err := client.RunCommand("floating toggle")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !ok {
		t.Fatal("success flag not set")
	}
	if string(raw) != `[{"success":true}]` {
		t.Fatalf("raw reply modified: %q", raw)
	}
}

func TestCallRunCommandFailure(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {
		mustReadFrame(t, conn)
		mustWriteFrame(t, conn, protocol.RunCommand, `[{"success":true},{"success":false,"error":"unknown command"}]`)
	})

	client, err := Dial(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ok, _, err := client.RunCommand("floating toggle; bogus")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if ok {
		t.Fatal("success reported for a failed command")
	}
}

func TestClientRawQueries(t *testing.T) {
	testlog.Start(t)
	const reply = `[{"num":1,"focused":true}]`
	path := startServer(t, func(conn net.Conn) {
		req := mustReadFrame(t, conn)
		if req.Kind != protocol.GetWorkspaces || len(req.Payload) != 0 {
			t.Errorf("request = %+v", req)
		}
		mustWriteFrame(t, conn, protocol.GetWorkspaces, reply)
	})

	client, err := Dial(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	raw, err := client.Workspaces()
	if err != nil {
		t.Fatalf("workspaces: %v", err)
	}
	if string(raw) != reply {
		t.Fatalf("raw = %q", raw)
	}
}

func TestSubscribeYieldsEventsThenCloses(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {
		req := mustReadFrame(t, conn)
		if req.Kind != protocol.Subscribe {
			t.Errorf("handshake kind = %v", req.Kind)
		}
		if string(req.Payload) != `["workspace","window"]` {
			t.Errorf("handshake payload = %q", req.Payload)
		}
		mustWriteFrame(t, conn, protocol.Subscribe, `{"success":true}`)
		mustWriteFrame(t, conn, protocol.EventWorkspace, `{"change":"focus"}`)
		mustWriteFrame(t, conn, protocol.EventWindow, `{"change":"new"}`)
	})

	sub, err := Subscribe(path, protocol.EventWorkspace, protocol.EventWindow)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	first, err := sub.Next()
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	if first.Kind != protocol.EventWorkspace || string(first.Body) != `{"change":"focus"}` {
		t.Fatalf("first = %+v", first)
	}
	second, err := sub.Next()
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if second.Kind != protocol.EventWindow {
		t.Fatalf("second = %+v", second)
	}
	if _, err := sub.Next(); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("stream end: err = %v, want ErrConnectionClosed", err)
	}
}

func TestSubscribeRejected(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {
		mustReadFrame(t, conn)
		mustWriteFrame(t, conn, protocol.Subscribe, `{"success":false}`)
	})

	_, err := Subscribe(path, protocol.EventWorkspace)
	if !errors.Is(err, ErrSubscribeRejected) {
		t.Fatalf("err = %v, want ErrSubscribeRejected", err)
	}
}

func TestSubscribeRejectsRequestKinds(t *testing.T) {
	testlog.Start(t)
	_, err := Subscribe("/nowhere", protocol.GetTree)
	if !errors.Is(err, ErrNotAnEvent) {
		t.Fatalf("err = %v, want ErrNotAnEvent", err)
	}
}

func TestSubscriptionSkipsStrayAck(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {
		mustReadFrame(t, conn)
		mustWriteFrame(t, conn, protocol.Subscribe, `{"success":true}`)
		mustWriteFrame(t, conn, protocol.Subscribe, `{"success":true}`)
		mustWriteFrame(t, conn, protocol.EventTick, `{"first":true}`)
	})

	sub, err := Subscribe(path, protocol.EventTick)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	ev, err := sub.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.Kind != protocol.EventTick {
		t.Fatalf("kind = %v", ev.Kind)
	}
}

func TestSubscriptionCloseReleasesBlockedNext(t *testing.T) {
	testlog.Start(t)
	path := startServer(t, func(conn net.Conn) {
		mustReadFrame(t, conn)
		mustWriteFrame(t, conn, protocol.Subscribe, `{"success":true}`)
		// Then go silent, leaving Next blocked.
		time.Sleep(5 * time.Second)
	})

	sub, err := Subscribe(path, protocol.EventWindow)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Next()
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Next returned an event after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next still blocked after Close")
	}
	// Idempotent.
	if err := sub.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
