// Package logging is the structured logger shared by the CLI, the
// controllers and the mock backend. Records go to stderr so that command
// output on stdout stays machine readable.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel is case insensitive, accepts WARNING for WARN, and maps
// anything unrecognised to InfoLevel
func ParseLevel(s string) LogLevel {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return WarnLevel
	}
	for i, name := range levelNames {
		if s == name {
			return LogLevel(i)
		}
	}
	return InfoLevel
}

// Field is one structured key/value attached to a record
type Field struct {
	Key   string
	Value interface{}
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

type LogConfig struct {
	Level      LogLevel
	Output     io.Writer
	TimeFormat string
	// Prefix names the logger, e.g. "mock"
	Prefix string
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      ParseLevel(os.Getenv("LOG_LEVEL")),
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// ContextKey marks context values that WithContext copies into records
type ContextKey string

const (
	RequestIDKey  ContextKey = "request_id"
	AnalysisIDKey ContextKey = "analysis_id"
	GraphIDKey    ContextKey = "graph_id"
)

var contextKeys = []ContextKey{RequestIDKey, AnalysisIDKey, GraphIDKey}

func ContextWith(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func String(key, value string) Field                 { return Field{key, value} }
func Strings(key string, values []string) Field      { return Field{key, values} }
func Int(key string, value int) Field                { return Field{key, value} }
func Bool(key string, value bool) Field              { return Field{key, value} }
func Duration(key string, value time.Duration) Field { return Field{key, value} }
func Any(key string, value interface{}) Field        { return Field{key, value} }

// Err attaches err under "error"
func Err(err error) Field { return Field{"error", err} }

var global struct {
	sync.RWMutex
	logger Logger
}

func SetGlobalLogger(logger Logger) {
	global.Lock()
	global.logger = logger
	global.Unlock()
}

// GetGlobalLogger returns the process logger, creating a default one on
// first use
func GetGlobalLogger() Logger {
	global.RLock()
	l := global.logger
	global.RUnlock()
	if l != nil {
		return l
	}

	global.Lock()
	defer global.Unlock()
	if global.logger == nil {
		global.logger = NewDefaultLogger()
	}
	return global.logger
}

func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(DefaultLogConfig())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// InitGlobalLogger installs a logger configured from LOG_LEVEL, appending
// to LOG_FILE when it is set
func InitGlobalLogger() {
	cfg := DefaultLogConfig()

	logFile := os.Getenv("LOG_FILE")
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("failed to open log file %s: %v", logFile, err))
		}
		cfg.Output = f
	}

	logger, err := NewZapLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	SetGlobalLogger(logger)
	logger.Debug("logger ready", String("level", cfg.Level.String()), String("log_file", logFile))
}

// MustSync flushes the global logger. Call it before the process exits.
func MustSync() {
	if z, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = z.Sync()
	}
}

func Debug(msg string, fields ...Field) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { GetGlobalLogger().Warn(msg, fields...) }

func Error(msg string, err error, fields ...Field) {
	GetGlobalLogger().Error(msg, err, fields...)
}

func WithContext(ctx context.Context) Logger { return GetGlobalLogger().WithContext(ctx) }

func WithFields(fields ...Field) Logger { return GetGlobalLogger().WithFields(fields...) }

// Component tags the global logger with the emitting component
func Component(name string) Logger {
	return GetGlobalLogger().WithFields(String("component", name))
}
