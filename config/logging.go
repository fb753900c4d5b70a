package config

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// InitLogging installs the process-wide slog handler. The level is info
// unless CHATKIT_DEBUG is set, which also surfaces the diagnostics the
// stream normalizer emits for skipped frames.
func InitLogging(w io.Writer) {
	level := slog.LevelInfo
	if CheckDebug() {
		level = slog.LevelDebug
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	slog.SetDefault(slog.New(handler))
}
