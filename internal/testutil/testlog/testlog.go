// Package testlog wires quiet logging into tests.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/efosmark/swayipc/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Debug().Str("test", t.Name()).Send()
}
