package logging

import (
	"io"
	log "log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

var levels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Setup installs a tint handler as the default slog logger. Unknown levels
// fall back to info.
func Setup(w io.Writer, level string) {
	lvl, ok := levels[strings.ToLower(level)]
	if !ok {
		lvl = log.LevelInfo
	}

	log.SetDefault(log.New(tint.NewHandler(w, &tint.Options{
		Level: lvl,
	})))
}
