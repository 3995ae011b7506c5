// Package config loads the CLI's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/efosmark/swayipc/internal/protocol"
)

// Config holds CLI-level settings. The library itself takes everything it
// needs as arguments; this exists so the tools don't.
type Config struct {
	// Socket overrides socket path resolution (normally $SWAYSOCK).
	Socket string `toml:"socket"`

	Log       LogConfig       `toml:"log"`
	Subscribe SubscribeConfig `toml:"subscribe"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type SubscribeConfig struct {
	// Events are the default categories the subscribe command watches
	// when none are given on the command line.
	Events []string `toml:"events"`
	// Retry makes the subscribe command reconnect with backoff after the
	// compositor closes the stream.
	Retry bool `toml:"retry"`
}

// Default returns the config used when no file is present.
func Default() Config {
	return Config{
		Subscribe: SubscribeConfig{
			Events: []string{"workspace", "window"},
		},
	}
}

// Load reads and validates a TOML config file. Fields left out keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects event names the protocol does not define.
func Validate(cfg Config) error {
	if len(cfg.Subscribe.Events) == 0 {
		return errors.New("config: subscribe.events must not be empty")
	}
	for _, name := range cfg.Subscribe.Events {
		if _, ok := protocol.EventKindByName(name); !ok {
			return fmt.Errorf("config: unknown event name %q", name)
		}
	}
	return nil
}

// EventKinds resolves the configured event names. Call Validate first;
// unknown names are skipped here.
func (c Config) EventKinds() []protocol.MessageKind {
	kinds := make([]protocol.MessageKind, 0, len(c.Subscribe.Events))
	for _, name := range c.Subscribe.Events {
		if k, ok := protocol.EventKindByName(name); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
