// Package logging holds the process-wide zap logger used by the nanostate
// command and the field names shared by every component's structured logs.
// Library packages do not read the global; they take a *zap.Logger through
// their WithLogger options. The CLI builds one here and passes it down.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging across nanostate
const (
	// Identity
	FieldEntityID     = "entity_id"
	FieldCollectionID = "collection_id"
	FieldComponent    = "component"

	// Entities
	FieldField      = "field"
	FieldFields     = "fields"
	FieldProperty   = "property"
	FieldVersion    = "version"
	FieldState      = "state"
	FieldFromState  = "from_state"
	FieldInvalidate = "invalidated"

	// Collections
	FieldAction   = "action"
	FieldIndex    = "index"
	FieldOldIndex = "old_index"
	FieldCount    = "count"
	FieldLogSize  = "log_size"
	FieldReason   = "reason"

	// Errors
	FieldError = "error"

	// Files
	FieldFile = "file"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize selected the JSON encoder
	JSONOutput bool

	base *zap.Logger
)

func init() {
	// Safe no-op until Initialize is called
	base = zap.NewNop()
	Logger = base.Sugar()
}

// Options configures Initialize
type Options struct {
	// Level is a zap level name: debug, info, warn, error. Empty means info.
	Level string
	// JSON selects the production JSON encoder instead of the console one
	JSON bool
	// Output defaults to stderr so command output on stdout stays clean
	Output io.Writer
}

// Initialize sets up the global logger
func Initialize(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	base = zap.New(zapcore.NewCore(encoder, zapcore.AddSync(out), level))
	Logger = base.Sugar()
	JSONOutput = opts.JSON
	return nil
}

// ParseLevel converts a level name to a zap level
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return level, errors.Wrapf(err, "invalid log level %q", name)
	}
	return level, nil
}

// Base returns the unsugared global logger, for passing into WithLogger
// options of library components
func Base() *zap.Logger {
	return base
}

// ComponentLogger returns a named child of the global logger
func ComponentLogger(name string) *zap.Logger {
	return base.Named(name)
}

// Sync flushes the global logger, ignoring the errors stdout and stderr
// return on some platforms
func Sync() {
	_ = base.Sync()
}
