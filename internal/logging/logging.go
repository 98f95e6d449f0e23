package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
)

// Setup configures the global logger. Format "json" writes structured lines,
// anything else a console writer. An invalid level falls back to info.
func Setup(cfg config.LogConfig, out io.Writer) zerolog.Level {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if strings.EqualFold(cfg.Format, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		if cfg.Level != "" {
			log.Warn().Str("level", cfg.Level).Msg("Invalid log level, using info")
		}
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	return level
}
