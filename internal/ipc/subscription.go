package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/efosmark/swayipc/internal/protocol"
)

var (
	ErrSubscribeRejected = errors.New("ipc: subscribe rejected by compositor")
	ErrNotAnEvent        = errors.New("ipc: kind is not a subscribable event")
)

// Subscription is a lazy, unbounded, non-restartable stream of event
// records. It owns a dedicated Transport: once the server has
// acknowledged the SUBSCRIBE it stream-switches into push-only mode, so
// the connection cannot be reused for request/reply calls.
type Subscription struct {
	t      *Transport
	closed atomic.Bool
	log    zerolog.Logger
}

// Subscribe opens a dedicated connection, requests the given event kinds,
// and validates the acknowledgement before returning the live stream.
func Subscribe(path string, kinds ...protocol.MessageKind) (*Subscription, error) {
	names, err := eventNamesFor(kinds)
	if err != nil {
		return nil, err
	}
	t, err := Connect(path)
	if err != nil {
		return nil, err
	}
	s, err := newSubscription(t, names)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	return s, nil
}

// SubscribeOn runs the SUBSCRIBE handshake on an already-connected
// Transport, which the subscription takes ownership of.
func SubscribeOn(t *Transport, kinds ...protocol.MessageKind) (*Subscription, error) {
	names, err := eventNamesFor(kinds)
	if err != nil {
		return nil, err
	}
	return newSubscription(t, names)
}

func eventNamesFor(kinds []protocol.MessageKind) ([]string, error) {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		name, ok := protocol.EventName(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotAnEvent, k)
		}
		names = append(names, name)
	}
	return names, nil
}

func newSubscription(t *Transport, names []string) (*Subscription, error) {
	payload, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("ipc: encode subscribe payload: %w", err)
	}
	if err := t.SendFrame(protocol.Subscribe, payload); err != nil {
		return nil, err
	}
	ack, err := t.ReceiveFrame()
	if err != nil {
		return nil, err
	}
	ok, err := protocol.DecodeStatus(ack.Payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSubscribeRejected
	}

	logger := log.With().
		Str("component", "ipc").
		Str("stream", uuid.NewString()).
		Strs("events", names).
		Logger()
	logger.Debug().Msg("subscription established")
	return &Subscription{t: t, log: logger}, nil
}

// Next blocks until the next event frame arrives and returns it as an
// EventRecord. The stream ends with ErrConnectionClosed once the peer
// closes or Close is called. Single-reader, like the Transport
// underneath.
func (s *Subscription) Next() (protocol.EventRecord, error) {
	for {
		f, err := s.t.ReceiveFrame()
		if err != nil {
			return protocol.EventRecord{}, err
		}
		// A duplicate ack can trail the handshake; skip it.
		if f.Kind == protocol.Subscribe {
			continue
		}
		if !f.Kind.IsEvent() {
			return protocol.EventRecord{}, fmt.Errorf("ipc: non-event frame %s on subscription stream", f.Kind)
		}
		return protocol.EventRecord{Kind: f.Kind, Body: f.Payload}, nil
	}
}

// Close tears down the connection, releasing a blocked Next. Safe to call
// more than once and concurrently with Next.
func (s *Subscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.log.Debug().Msg("subscription closed")
	return s.t.Close()
}
