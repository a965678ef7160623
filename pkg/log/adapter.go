// Package log is the InferGate logging stack: the zap core setup, a kratos
// log.Logger adapter, and sanitization of sensitive fields.
package log

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
)

// KratosAdapter exposes a zap logger through the kratos log.Logger interface.
// Kratos hands over flat key/value pairs; the adapter turns them into zap
// fields, running every string value through SanitizeField so upstream API
// keys and tokens never reach the log stream in full.
type KratosAdapter struct {
	zapLogger *zap.Logger
}

// NewKratosAdapter wraps the given zap logger.
func NewKratosAdapter(zapLogger *zap.Logger) log.Logger {
	return &KratosAdapter{
		zapLogger: zapLogger,
	}
}

// Log implements log.Logger. A dangling key without a value is dropped.
func (a *KratosAdapter) Log(level log.Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		switch v := keyvals[i+1].(type) {
		case string:
			fields = append(fields, zap.String(key, SanitizeField(key, v)))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch level {
	case log.LevelDebug:
		a.zapLogger.Debug("", fields...)
	case log.LevelWarn:
		a.zapLogger.Warn("", fields...)
	case log.LevelError:
		a.zapLogger.Error("", fields...)
	case log.LevelFatal:
		a.zapLogger.Fatal("", fields...)
	default:
		a.zapLogger.Info("", fields...)
	}

	return nil
}
