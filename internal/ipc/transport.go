package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/efosmark/swayipc/internal/protocol"
	"github.com/efosmark/swayipc/internal/protocol/frame"
)

const (
	// EnvSwaySock is sway's own socket variable, checked first.
	EnvSwaySock = "SWAYSOCK"
	// EnvI3Sock is the i3-compatible fallback.
	EnvI3Sock = "I3SOCK"

	connectTimeout = 2 * time.Second
	readChunkSize  = 32 * 1024
)

var (
	ErrNoSocketPath     = errors.New("ipc: no socket path: pass one explicitly or set $SWAYSOCK")
	ErrConnect          = errors.New("ipc: connect failed")
	ErrConnectionClosed = errors.New("ipc: connection closed by peer")
	ErrReceiveTimeout   = errors.New("ipc: receive timed out")
)

// SocketPath resolves the IPC socket location: an explicit override wins,
// then $SWAYSOCK, then $I3SOCK, then the default runtime-dir pattern.
func SocketPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv(EnvSwaySock); p != "" {
		return p, nil
	}
	if p := os.Getenv(EnvI3Sock); p != "" {
		return p, nil
	}
	if p := defaultSocketPath(); p != "" {
		return p, nil
	}
	return "", ErrNoSocketPath
}

// defaultSocketPath looks for sway's well-known socket name under the
// user's runtime directory. The name embeds the compositor's pid, hence
// the glob.
func defaultSocketPath() string {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = fmt.Sprintf("/run/user/%d", os.Getuid())
	}
	pattern := filepath.Join(runtimeDir, fmt.Sprintf("sway-ipc.%d.*.sock", os.Getuid()))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// Transport owns one connection to the IPC endpoint and the receive
// buffer used to reassemble frames from partial reads.
type Transport struct {
	conn        net.Conn
	buf         []byte
	readTimeout time.Duration
	log         zerolog.Logger
}

// Connect opens a stream connection to the Unix domain socket resolved
// from path (may be empty, see SocketPath).
func Connect(path string) (*Transport, error) {
	resolved, err := SocketPath(path)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("unix", resolved, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnect, resolved, err)
	}
	t := NewTransport(conn)
	t.log.Debug().Str("socket", resolved).Msg("connected")
	return t, nil
}

// NewTransport wraps an established connection. Used by Connect and by
// tests driving in-memory pipes.
func NewTransport(conn net.Conn) *Transport {
	return &Transport{
		conn: conn,
		log:  log.With().Str("component", "ipc").Logger(),
	}
}

// SetReceiveTimeout bounds each subsequent ReceiveFrame call. Zero
// restores indefinite blocking. On expiry ReceiveFrame fails with
// ErrReceiveTimeout and the connection stays usable for a retry.
func (t *Transport) SetReceiveTimeout(d time.Duration) {
	t.readTimeout = d
}

// SendFrame encodes and writes one whole frame. net.Conn.Write only
// returns short together with an error, so any error here means the
// connection is dead.
func (t *Transport) SendFrame(kind protocol.MessageKind, payload []byte) error {
	buf, err := frame.Encode(kind, payload)
	if err != nil {
		return err
	}
	if _, err := t.conn.Write(buf); err != nil {
		return fmt.Errorf("ipc: send %s: %w", kind, err)
	}
	t.log.Trace().Stringer("kind", kind).Int("payload_bytes", len(payload)).Msg("frame sent")
	return nil
}

// ReceiveFrame blocks until one complete frame has been read, leaving any
// excess bytes buffered for the next call. A peer close with no frame
// pending is ErrConnectionClosed. Must not be called concurrently on the
// same Transport.
func (t *Transport) ReceiveFrame() (frame.Frame, error) {
	for {
		f, consumed, err := frame.Decode(t.buf)
		if err != nil {
			return frame.Frame{}, err
		}
		if consumed > 0 {
			t.buf = append(t.buf[:0], t.buf[consumed:]...)
			t.log.Trace().Stringer("kind", f.Kind).Int("payload_bytes", len(f.Payload)).Msg("frame received")
			return f, nil
		}

		if t.readTimeout > 0 {
			if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
				return frame.Frame{}, fmt.Errorf("ipc: set read deadline: %w", err)
			}
		} else {
			if err := t.conn.SetReadDeadline(time.Time{}); err != nil {
				return frame.Frame{}, fmt.Errorf("ipc: set read deadline: %w", err)
			}
		}

		chunk := make([]byte, readChunkSize)
		n, err := t.conn.Read(chunk)
		if n > 0 {
			t.buf = append(t.buf, chunk[:n]...)
			continue
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
			return frame.Frame{}, ErrConnectionClosed
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return frame.Frame{}, ErrReceiveTimeout
		}
		return frame.Frame{}, fmt.Errorf("ipc: receive: %w", err)
	}
}

// Close tears down the connection, releasing any blocked ReceiveFrame.
func (t *Transport) Close() error {
	return t.conn.Close()
}
