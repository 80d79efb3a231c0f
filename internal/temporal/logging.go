package temporal

import (
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// ZerologAdapter sends Temporal SDK logs through zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

var (
	_ log.Logger     = (*ZerologAdapter)(nil)
	_ log.WithLogger = (*ZerologAdapter)(nil)
)

func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

// pairs splits Temporal's alternating key/value list.
func pairs(keyvals []interface{}) ([]string, []interface{}) {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	keys := make([]string, 0, len(keyvals)/2)
	values := make([]interface{}, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = "INVALID_KEY"
		}
		keys = append(keys, key)
		values = append(values, keyvals[i+1])
	}
	return keys, values
}

func (a *ZerologAdapter) event(e *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	keys, values := pairs(keyvals)
	for i, key := range keys {
		e = e.Interface(key, values[i])
	}
	return e
}

func (a *ZerologAdapter) Debug(msg string, keyvals ...interface{}) {
	a.event(a.logger.Debug(), keyvals).Msg(msg)
}

func (a *ZerologAdapter) Info(msg string, keyvals ...interface{}) {
	a.event(a.logger.Info(), keyvals).Msg(msg)
}

func (a *ZerologAdapter) Warn(msg string, keyvals ...interface{}) {
	a.event(a.logger.Warn(), keyvals).Msg(msg)
}

func (a *ZerologAdapter) Error(msg string, keyvals ...interface{}) {
	a.event(a.logger.Error(), keyvals).Msg(msg)
}

// With returns a logger that adds keyvals to every entry.
func (a *ZerologAdapter) With(keyvals ...interface{}) log.Logger {
	ctx := a.logger.With()
	keys, values := pairs(keyvals)
	for i, key := range keys {
		ctx = ctx.Interface(key, values[i])
	}
	return &ZerologAdapter{logger: ctx.Logger()}
}
