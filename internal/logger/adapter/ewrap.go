package adapter

import (
	"os"

	"github.com/hyp3rd/ewrap/pkg/ewrap/adapters"
	"github.com/rs/zerolog"
)

// NewZerologAdapter creates a ZerologAdapter for structured JSON output
// tagged component=audit. No configuration setting selects it: the
// orchestrator logs through the hand-rolled adapter only. It writes to
// stderr: stdout is reserved for JSON-RPC protocol frames.
func NewZerologAdapter() *adapters.ZerologAdapter {
	zerologLogger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "audit").Logger()

	return adapters.NewZerologAdapter(zerologLogger)
}
