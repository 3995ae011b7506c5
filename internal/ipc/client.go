package ipc

import (
	"github.com/efosmark/swayipc/internal/protocol"
	"github.com/efosmark/swayipc/internal/protocol/frame"
)

// Client issues request/reply calls over a dedicated Transport. The
// protocol guarantees strict request/reply ordering on a connection that
// is not also a subscription stream, so Call assumes exclusive use of the
// Transport for its duration. Not safe for concurrent Call.
type Client struct {
	t *Transport
}

// Dial connects a request/reply client. path may be empty (see
// SocketPath).
func Dial(path string) (*Client, error) {
	t, err := Connect(path)
	if err != nil {
		return nil, err
	}
	return &Client{t: t}, nil
}

// NewClient wraps an existing Transport. The Transport must not be one
// already stream-switched into subscription mode.
func NewClient(t *Transport) *Client {
	return &Client{t: t}
}

// Call sends one request frame and blocks for exactly one reply frame.
// The reply kind is not checked against the request kind; it is surfaced
// on the returned frame for callers that care.
func (c *Client) Call(kind protocol.MessageKind, payload []byte) (frame.Frame, error) {
	if err := c.t.SendFrame(kind, payload); err != nil {
		return frame.Frame{}, err
	}
	return c.t.ReceiveFrame()
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.t.Close()
}

func (c *Client) rawQuery(kind protocol.MessageKind) ([]byte, error) {
	f, err := c.Call(kind, nil)
	if err != nil {
		return nil, err
	}
	return f.Payload, nil
}

// RunCommand submits a command string (comma/semicolon-delimited for
// multiple commands) and reports whether every command succeeded,
// alongside the raw reply for callers wanting per-command detail.
func (c *Client) RunCommand(command string) (bool, []byte, error) {
	f, err := c.Call(protocol.RunCommand, []byte(command))
	if err != nil {
		return false, nil, err
	}
	results, err := protocol.DecodeCommandResults(f.Payload)
	if err != nil {
		return false, f.Payload, err
	}
	return protocol.AllSucceeded(results), f.Payload, nil
}

// Workspaces returns the raw GET_WORKSPACES reply.
func (c *Client) Workspaces() ([]byte, error) { return c.rawQuery(protocol.GetWorkspaces) }

// Outputs returns the raw GET_OUTPUTS reply.
func (c *Client) Outputs() ([]byte, error) { return c.rawQuery(protocol.GetOutputs) }

// Tree returns the raw GET_TREE reply.
func (c *Client) Tree() ([]byte, error) { return c.rawQuery(protocol.GetTree) }

// Marks returns the raw GET_MARKS reply.
func (c *Client) Marks() ([]byte, error) { return c.rawQuery(protocol.GetMarks) }

// BarConfig returns the raw GET_BAR_CONFIG reply: the list of bar IDs for
// an empty barID, the full config for a specific one.
func (c *Client) BarConfig(barID string) ([]byte, error) {
	var payload []byte
	if barID != "" {
		payload = []byte(barID)
	}
	f, err := c.Call(protocol.GetBarConfig, payload)
	if err != nil {
		return nil, err
	}
	return f.Payload, nil
}

// Version returns the raw GET_VERSION reply.
func (c *Client) Version() ([]byte, error) { return c.rawQuery(protocol.GetVersion) }

// BindingModes returns the raw GET_BINDING_MODES reply.
func (c *Client) BindingModes() ([]byte, error) { return c.rawQuery(protocol.GetBindingModes) }

// ConfigContents returns the raw GET_CONFIG reply.
func (c *Client) ConfigContents() ([]byte, error) { return c.rawQuery(protocol.GetConfig) }

// Tick broadcasts a tick event with an optional payload and reports the
// compositor's success flag.
func (c *Client) Tick(payload string) (bool, []byte, error) {
	return c.statusCall(protocol.SendTick, []byte(payload))
}

// Sync issues the X11-compat SYNC request (a no-op under Wayland).
func (c *Client) Sync() (bool, []byte, error) {
	return c.statusCall(protocol.Sync, nil)
}

func (c *Client) statusCall(kind protocol.MessageKind, payload []byte) (bool, []byte, error) {
	f, err := c.Call(kind, payload)
	if err != nil {
		return false, nil, err
	}
	ok, err := protocol.DecodeStatus(f.Payload)
	if err != nil {
		return false, f.Payload, err
	}
	return ok, f.Payload, nil
}

// BindingState returns the raw GET_BINDING_STATE reply.
func (c *Client) BindingState() ([]byte, error) { return c.rawQuery(protocol.GetBindingState) }

// Inputs returns the raw GET_INPUTS reply.
func (c *Client) Inputs() ([]byte, error) { return c.rawQuery(protocol.GetInputs) }

// Seats returns the raw GET_SEATS reply.
func (c *Client) Seats() ([]byte, error) { return c.rawQuery(protocol.GetSeats) }
