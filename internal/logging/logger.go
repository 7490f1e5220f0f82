// Package logging configures the structured logger shared by the CLI and the
// HTTP service.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Formatter writes one line per entry: date, time, event source, level,
// a fresh event ID, message, then any fields in key order.
type Formatter struct {
	SystemName string
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	t := entry.Time
	b.WriteString(fmt.Sprintf("Date: %s, Time: %s, ", t.Format("2006-01-02"), t.Format("15:04:05")))
	b.WriteString(fmt.Sprintf("Event Source: %s, ", f.SystemName))
	b.WriteString(fmt.Sprintf("Event Type: %s, ", strings.ToUpper(entry.Level.String())))
	b.WriteString(fmt.Sprintf("Event ID: %s, ", uuid.New().String()))
	b.WriteString(fmt.Sprintf("Message: %s", entry.Message))

	for _, k := range sortedKeys(entry.Data) {
		b.WriteString(fmt.Sprintf(", %s=%v", k, entry.Data[k]))
	}

	if entry.HasCaller() {
		b.WriteString(fmt.Sprintf(", Location: %s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Options selects where and how much to log.
type Options struct {
	// SystemName is written as the event source.
	SystemName string

	// File enables rotating file output when non-empty.
	File string

	// Debug routes debug-level output to Stderr.
	Debug bool

	// Stderr receives debug output; defaults to os.Stderr.
	Stderr io.Writer
}

// New builds a logger. Without a file or debug output it discards everything,
// so CLI output stays clean.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&Formatter{SystemName: opts.SystemName})
	logger.SetLevel(logrus.InfoLevel)

	var writers []io.Writer
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			})
		}
	}
	if opts.Debug {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
		logger.SetLevel(logrus.DebugLevel)
		logger.SetReportCaller(true)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return logger
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
