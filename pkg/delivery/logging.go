package delivery

import (
	"maps"
	"slices"

	"github.com/go-logr/logr"
)

// LogrLogger adapts a logr.Logger to Logger. Debug messages are written at
// verbosity 1; warnings are info messages tagged level=warn.
type LogrLogger struct {
	log logr.Logger
}

// NewLogrLogger wraps log.
func NewLogrLogger(log logr.Logger) *LogrLogger {
	return &LogrLogger{log: log}
}

// Debug logs at V(1).
func (l *LogrLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.V(1).Info(msg, keysAndValues(fields)...)
}

// Info logs at V(0).
func (l *LogrLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info(msg, keysAndValues(fields)...)
}

// Warn logs at V(0) with level=warn.
func (l *LogrLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Info(msg, append([]interface{}{"level", "warn"}, keysAndValues(fields)...)...)
}

// Error logs through the error sink. An "error" field that holds an error is
// passed as the error value.
func (l *LogrLogger) Error(msg string, fields map[string]interface{}) {
	err, _ := fields["error"].(error)
	if err != nil {
		fields = maps.Clone(fields)
		delete(fields, "error")
	}

	l.log.Error(err, msg, keysAndValues(fields)...)
}

// keysAndValues flattens fields in key order so log lines are stable.
func keysAndValues(fields map[string]interface{}) []interface{} {
	kv := make([]interface{}, 0, 2*len(fields))

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		kv = append(kv, key, fields[key])
	}

	return kv
}

// NopLogger discards everything.
type NopLogger struct{}

// Debug does nothing.
func (NopLogger) Debug(string, map[string]interface{}) {}

// Info does nothing.
func (NopLogger) Info(string, map[string]interface{}) {}

// Warn does nothing.
func (NopLogger) Warn(string, map[string]interface{}) {}

// Error does nothing.
func (NopLogger) Error(string, map[string]interface{}) {}
