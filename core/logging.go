package core

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the token logger. It writes to general.logfile when set
// and to stderr otherwise. The returned closer releases the log file.
func NewLogger(conf GeneralConfig) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if conf.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(conf.LogLevel)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("log level: %v", err)
		}
		level = parsed
	}

	if conf.LogFile == "" {
		w := zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), io.NopCloser(nil), nil
	}
	logFile, err := os.OpenFile(conf.LogFile, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("cannot create logfile in given path: %v", err)
	}
	return zerolog.New(logFile).Level(level).With().Timestamp().Logger(), logFile, nil
}
