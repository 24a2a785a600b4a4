package ports

import "time"

// Logger is the structured logger used by every package below cmd/.
// Implementations live in internal/adapters/log.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value pair attached to a log event.
type Field struct {
	Key   string
	Value any
}

// ErrorKey is the key used by Err.
const ErrorKey = "error"

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err attaches err under ErrorKey.
func Err(err error) Field { return Field{Key: ErrorKey, Value: err} }
