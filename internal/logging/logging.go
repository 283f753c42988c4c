// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by the CLI and pipeline.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/bartekus/cadence/internal/config"
)

// New returns a logger writing to w. The console format is human readable;
// anything else emits one JSON object per line. Unknown levels fall back to
// info.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
