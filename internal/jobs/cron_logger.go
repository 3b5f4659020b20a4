package jobs

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts slog to cron.Logger. Cron's routine chatter is logged
// at debug level.
type cronLogger struct {
	log *slog.Logger
}

// NewCronLogger wraps log for use with cron.WithLogger.
func NewCronLogger(log *slog.Logger) cron.Logger {
	return &cronLogger{log: log}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...any) {
	cl.log.Debug(msg, keysAndValues...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	cl.log.Error(msg, append(keysAndValues, "err", err)...)
}
