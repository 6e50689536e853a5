package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging routes the global logger to the console and a rotating
// log file under the configured directory.
func setupLogging(cfg LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "monitorsync.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, logFile)).
		With().Timestamp().Logger()
}
