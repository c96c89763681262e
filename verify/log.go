package verify

import (
	"io"
	"log/slog"

	"github.com/rs/xid"
)

// LevelTrace is below Debug and shows every event a checker handles.
const LevelTrace slog.Level = slog.LevelDebug - 4

// NewLogger creates the logger for one run of a tool. Each run is tagged
// with a fresh run id so that interleaved logs can be told apart.
func NewLogger(w io.Writer, tool string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = LevelTrace
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}

			return a
		},
	})

	return slog.New(h).With("tool", tool, "run", xid.New().String())
}
