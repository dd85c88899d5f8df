package bus

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// Logger adapts zerolog to watermill's LoggerAdapter interface. Trace maps to
// zerolog's trace level, so it stays silent at the default level.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) Logger {
	return Logger{log: log.With().Str("component", "bus").Logger()}
}

func (l Logger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.log.Error().Err(err), msg, fields)
}

func (l Logger) Info(msg string, fields watermill.LogFields) {
	l.event(l.log.Info(), msg, fields)
}

func (l Logger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), msg, fields)
}

func (l Logger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.log.Trace(), msg, fields)
}

func (l Logger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return Logger{log: ctx.Logger()}
}

func (l Logger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
