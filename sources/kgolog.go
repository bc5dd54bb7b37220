package sources

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// kgoLogger routes franz-go client logs into zerolog.
type kgoLogger struct {
	logger zerolog.Logger
}

// NewKgoLogger returns a kgo.Logger writing to l. The kgo level follows the
// level of l.
func NewKgoLogger(l zerolog.Logger) kgo.Logger {
	return kgoLogger{logger: l}
}

func (k kgoLogger) Level() kgo.LogLevel {
	switch lvl := k.logger.GetLevel(); {
	case lvl <= zerolog.DebugLevel:
		return kgo.LogLevelDebug
	case lvl == zerolog.InfoLevel:
		return kgo.LogLevelInfo
	case lvl == zerolog.WarnLevel:
		return kgo.LogLevelWarn
	case lvl == zerolog.Disabled:
		return kgo.LogLevelNone
	default:
		return kgo.LogLevelError
	}
}

func (k kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	var ev *zerolog.Event
	switch level {
	case kgo.LogLevelError:
		ev = k.logger.Error()
	case kgo.LogLevelWarn:
		ev = k.logger.Warn()
	case kgo.LogLevelInfo:
		ev = k.logger.Info()
	case kgo.LogLevelDebug:
		ev = k.logger.Debug()
	default:
		return
	}
	for i := 0; i+1 < len(keyvals); i += 2 {
		ev = ev.Interface(fmt.Sprint(keyvals[i]), keyvals[i+1])
	}
	ev.Msg(msg)
}
