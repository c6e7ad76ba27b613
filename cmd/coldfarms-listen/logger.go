package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func newLogger(cfg listenConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
	}
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.LogFile != "",
			TimeFormat: "15:04:05.000",
		}
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().
		Str("role", "listener").
		Timestamp().
		Logger()
}
