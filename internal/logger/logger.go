package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	isDevelopment = false // human readable console output

	logFile *os.File = nil

	level = zerolog.InfoLevel

	// AdHocLogger is usable before the service logger is configured.
	AdHocLogger zerolog.Logger

	once sync.Once

	globalLogger zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	AdHocLogger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "ad-hoc-logger").Caller().Logger()
}

// New builds a logger writing to w. In development mode w receives
// human-readable console lines instead of JSON.
func New(w io.Writer, development bool, lvl zerolog.Level) zerolog.Logger {
	if !development {
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	}

	consoleWriter := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339,
		FormatLevel: func(i any) string {
			return strings.ToUpper(fmt.Sprintf("[%5s]", i))
		},
		FormatMessage: func(i any) string {
			return fmt.Sprintf("| %s |", i)
		},
		FormatCaller: func(i any) string {
			return filepath.Base(fmt.Sprintf("%s", i))
		},
		PartsExclude: []string{
			zerolog.TimestampFieldName,
		}}
	return zerolog.New(consoleWriter).Level(lvl).With().Timestamp().Caller().Logger()
}

func root() zerolog.Logger {
	once.Do(func() {
		var out io.Writer = os.Stderr
		if logFile != nil {
			out = zerolog.MultiLevelWriter(os.Stderr, logFile)
		}
		globalLogger = New(out, isDevelopment, level)
		log.Logger = globalLogger
	})
	return globalLogger
}

// GetLogger returns a logger tagged with the component name. The first call
// freezes the development, level and file settings.
func GetLogger(component string) zerolog.Logger {
	return root().With().Str("component", component).Logger()
}

// Install builds the service logger and makes it the zerolog global.
func Install() zerolog.Logger {
	return root()
}

func SetDevelopment(value bool) {
	isDevelopment = value
}

func SetLogFile(file *os.File) {
	logFile = file
}

// SetLevel parses a zerolog level name such as "debug" or "trace".
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level = lvl
	return nil
}
