package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/efosmark/swayipc/internal/dispatch"
	"github.com/efosmark/swayipc/internal/ipc"
	"github.com/efosmark/swayipc/internal/protocol"
)

// eventLine is the NDJSON shape the subscribe command emits per event.
type eventLine struct {
	Event   string          `json:"event"`
	Change  string          `json:"change,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func newSubscribeCommand(ctx *commandContext) *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "subscribe [event]...",
		Short: "Stream events as JSON lines until interrupted",
		Long: "Subscribe to the named event categories (workspace, mode, window,\n" +
			"barconfig_update, binding, shutdown, tick, bar_state_update, input)\n" +
			"and print one JSON line per event. With no arguments the categories\n" +
			"come from the config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := resolveEventKinds(ctx, args)
			if err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(stop)

			if !retry && !ctx.cfg.Subscribe.Retry {
				return watchOnce(ctx, kinds, stop)
			}
			return watchWithRetry(ctx, kinds, stop)
		},
	}

	cmd.Flags().BoolVar(&retry, "retry", false, "Reconnect with backoff when the compositor closes the stream")
	return cmd
}

func resolveEventKinds(ctx *commandContext, args []string) ([]protocol.MessageKind, error) {
	if len(args) == 0 {
		return ctx.cfg.EventKinds(), nil
	}
	kinds := make([]protocol.MessageKind, 0, len(args))
	for _, name := range args {
		k, ok := protocol.EventKindByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown event name %q", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// watchOnce runs one subscription to completion: compositor close ends it
// cleanly, anything else is an error.
func watchOnce(ctx *commandContext, kinds []protocol.MessageKind, stop <-chan os.Signal) error {
	sub, err := ipc.Subscribe(ctx.cfg.Socket, kinds...)
	if err != nil {
		return err
	}

	d := newPrintingDispatcher(sub, kinds)
	done := d.Start()
	select {
	case <-stop:
		d.Stop()
		<-done
		return nil
	case err := <-done:
		if errors.Is(err, ipc.ErrConnectionClosed) {
			return nil
		}
		return err
	}
}

func watchWithRetry(ctx *commandContext, kinds []protocol.MessageKind, stop <-chan os.Signal) error {
	cfg := ipc.DefaultBackoffConfig()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	attempt := 0
	for {
		sub, err := ipc.Subscribe(ctx.cfg.Socket, kinds...)
		if err != nil {
			attempt++
			delay := ipc.NextBackoffDelay(cfg, attempt, rng)
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("subscribe failed")
			select {
			case <-stop:
				return nil
			case <-time.After(delay):
				continue
			}
		}
		attempt = 0

		d := newPrintingDispatcher(sub, kinds)
		done := d.Start()
		select {
		case <-stop:
			d.Stop()
			<-done
			return nil
		case err := <-done:
			if err != nil && !errors.Is(err, ipc.ErrConnectionClosed) {
				return err
			}
			log.Info().Msg("stream ended, reconnecting")
		}
	}
}

func newPrintingDispatcher(sub *ipc.Subscription, kinds []protocol.MessageKind) *dispatch.Dispatcher {
	d := dispatch.New(sub)
	enc := json.NewEncoder(os.Stdout)
	for _, kind := range kinds {
		name, _ := protocol.EventName(kind)
		d.Register(kind, dispatch.ChangeAny, func(ev protocol.EventRecord, change string) error {
			return enc.Encode(eventLine{Event: name, Change: change, Payload: ev.Body})
		})
	}
	return d
}
