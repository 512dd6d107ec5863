// Package logging configures the shared logrus logger and carries request
// IDs through contexts.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, format and destination of log output.
type Config struct {
	Level     string `mapstructure:"level" json:"level"`
	Format    string `mapstructure:"format" json:"format"`
	File      string `mapstructure:"file" json:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb" json:"max_size_mb"`
}

var (
	writerMu  sync.Mutex
	logWriter *lumberjack.Logger
)

// LineFormatter renders entries as
// [2025-12-23 20:14:04] [a1b2c3d4] [info ] message key=value ...
type LineFormatter struct{}

func (f *LineFormatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	reqID := "--------"
	if id, ok := entry.Data[requestIDField].(string); ok && id != "" {
		reqID = id
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != requestIDField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var fields strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&fields, " %s=%v", k, entry.Data[k])
	}

	fmt.Fprintf(buffer, "[%s] [%s] [%-5s] %s%s\n",
		entry.Time.Format("2006-01-02 15:04:05"), reqID, level,
		strings.TrimRight(entry.Message, "\r\n"), fields.String())
	return buffer.Bytes(), nil
}

// Setup applies cfg to the standard logrus logger. An unknown level falls
// back to info with a warning.
func Setup(cfg Config) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
		defer log.WithError(err).Warn("invalid log level, using info")
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&LineFormatter{})
	default:
		return fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	out, err := openOutput(cfg)
	if err != nil {
		return err
	}
	log.SetOutput(out)
	return nil
}

func openOutput(cfg Config) (io.Writer, error) {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	if cfg.File == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("logging: failed to create log directory: %w", err)
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	logWriter = &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: 3,
	}
	return logWriter, nil
}

// Close flushes and closes the log file, if one is open.
func Close() {
	writerMu.Lock()
	defer writerMu.Unlock()
	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	log.SetOutput(os.Stdout)
}

const requestIDField = "request_id"

type requestIDKey struct{}

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns a log entry tagged with the request ID in ctx.
func FromContext(ctx context.Context) *log.Entry {
	if id := RequestID(ctx); id != "" {
		return log.WithField(requestIDField, id)
	}
	return log.NewEntry(log.StandardLogger())
}
