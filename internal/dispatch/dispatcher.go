// Package dispatch routes decoded event records to registered handlers.
//
// Ownership boundary:
// - handler registry keyed by (event category, change type)
// - the blocking receive loop and its Idle/Running/Stopped lifecycle
// - isolation of handler failures from the loop
package dispatch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/efosmark/swayipc/internal/ipc"
	"github.com/efosmark/swayipc/internal/protocol"
)

var (
	ErrAlreadyRunning = errors.New("dispatch: dispatcher already running")
	ErrStopped        = errors.New("dispatch: dispatcher stopped")
)

// ChangeAny registers a handler for every change type in its category.
const ChangeAny = ""

// HandlerFunc consumes one event. change is the payload's decoded
// "change" discriminator ("" for categories without one). Full payload
// parsing is the handler's business.
type HandlerFunc func(ev protocol.EventRecord, change string) error

// EventSource is the stream the loop pulls from; *ipc.Subscription
// satisfies it, tests use in-memory fakes.
type EventSource interface {
	Next() (protocol.EventRecord, error)
	Close() error
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

type registration struct {
	category protocol.MessageKind
	change   string
	fn       HandlerFunc
	removed  bool
}

func (r *registration) matches(kind protocol.MessageKind, change string) bool {
	if r.removed || r.category != kind {
		return false
	}
	return r.change == ChangeAny || r.change == change
}

// Registration is the removal handle returned by Register.
type Registration struct {
	d *Dispatcher
	r *registration
}

// Remove unregisters the handler. The entry is marked dead rather than
// compacted away, so removal is safe while a dispatch is in flight and
// the order of surviving handlers never shifts.
func (h *Registration) Remove() {
	h.d.mu.Lock()
	h.r.removed = true
	h.d.mu.Unlock()
}

// Dispatcher pulls event records from one source and fans each out to the
// matching handlers, in registration order, on the loop goroutine.
type Dispatcher struct {
	source EventSource

	mu       sync.Mutex
	handlers []*registration
	st       state

	errs chan error
	log  zerolog.Logger
}

// New builds an idle dispatcher over the given source.
func New(source EventSource) *Dispatcher {
	return &Dispatcher{
		source: source,
		errs:   make(chan error, 16),
		log:    log.With().Str("component", "dispatch").Logger(),
	}
}

// Register adds a handler for a (category, change) pair; ChangeAny
// matches every change in the category. Safe before or after the loop
// starts. Handlers matching one event run in registration order.
func (d *Dispatcher) Register(category protocol.MessageKind, change string, fn HandlerFunc) *Registration {
	reg := &registration{category: category, change: change, fn: fn}
	d.mu.Lock()
	d.handlers = append(d.handlers, reg)
	d.mu.Unlock()
	return &Registration{d: d, r: reg}
}

// Errors surfaces handler failures without letting them abort the loop.
// The channel is buffered and drops on overflow; failures are always
// logged regardless.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// Run pulls and dispatches events until the source ends or Stop is
// called. Blocks the calling goroutine; the only suspension point is the
// source's Next. Returns nil after an explicit Stop, the terminal error
// otherwise.
func (d *Dispatcher) Run() error {
	d.mu.Lock()
	switch d.st {
	case stateRunning:
		d.mu.Unlock()
		return ErrAlreadyRunning
	case stateStopped:
		d.mu.Unlock()
		return ErrStopped
	}
	d.st = stateRunning
	d.mu.Unlock()

	for {
		ev, err := d.source.Next()
		if err != nil {
			if d.markStopped() {
				return nil
			}
			_ = d.source.Close()
			if errors.Is(err, ipc.ErrConnectionClosed) {
				d.log.Debug().Msg("event stream ended")
				return err
			}
			d.log.Error().Err(err).Msg("event stream failed")
			return err
		}
		d.Dispatch(ev)
	}
}

// Start runs the loop on its own goroutine and delivers Run's result on
// the returned channel.
func (d *Dispatcher) Start() <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- d.Run()
	}()
	return done
}

// Stop moves the dispatcher to its terminal state and closes the source,
// releasing a blocked Next. Idempotent.
func (d *Dispatcher) Stop() {
	if d.markStopped() {
		return
	}
	_ = d.source.Close()
}

// markStopped transitions to Stopped, reporting whether it already was.
func (d *Dispatcher) markStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.st == stateStopped {
		return true
	}
	d.st = stateStopped
	return false
}

// Dispatch routes one event record to every matching handler, in
// registration order. A failing or panicking handler is reported and
// skipped past; it cannot stop the loop or starve later handlers.
func (d *Dispatcher) Dispatch(ev protocol.EventRecord) {
	change := protocol.PeekChange(ev.Body)

	d.mu.Lock()
	matched := make([]*registration, 0, len(d.handlers))
	for _, reg := range d.handlers {
		if reg.matches(ev.Kind, change) {
			matched = append(matched, reg)
		}
	}
	d.mu.Unlock()

	for _, reg := range matched {
		d.invoke(reg, ev, change)
	}
}

func (d *Dispatcher) invoke(reg *registration, ev protocol.EventRecord, change string) {
	defer func() {
		if v := recover(); v != nil {
			d.report(fmt.Errorf("dispatch: handler panic on %s/%s: %v", ev.Kind, change, v))
		}
	}()
	if err := reg.fn(ev, change); err != nil {
		d.report(fmt.Errorf("dispatch: handler error on %s/%s: %w", ev.Kind, change, err))
	}
}

func (d *Dispatcher) report(err error) {
	d.log.Error().Err(err).Msg("handler failed")
	select {
	case d.errs <- err:
	default:
	}
}
