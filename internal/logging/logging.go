// Package logging builds the process logger and carries request scoped
// entries through contexts.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// File receives every entry in addition to stdout.
	File string
	// ErrorFile receives error level entries and above.
	ErrorFile string
	// Out defaults to os.Stdout.
	Out io.Writer
}

// New returns a JSON logger and a closer for any log files it opened.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, errors.Wrap(err, "log level")
		}
		level = lvl
	}
	log.SetLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	var files closers
	if opts.File != "" {
		f := rotating(opts.File)
		files = append(files, f)
		out = io.MultiWriter(out, f)
	}
	log.Out = out

	if opts.ErrorFile != "" {
		f := rotating(opts.ErrorFile)
		files = append(files, f)
		log.AddHook(&errorHook{w: f, formatter: log.Formatter})
	}
	return log, files, nil
}

func rotating(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     28,
	}
}

// errorHook copies error entries to a dedicated writer.
type errorHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (h *errorHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
}

func (h *errorHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}

type closers []io.Closer

func (c closers) Close() error {
	var first error
	for _, cl := range c {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type ctxKeyLog struct{}

func WithLogger(ctx context.Context, log logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLog{}, log)
}

// FromContext returns the request logger, or fallback when none is set.
func FromContext(ctx context.Context, fallback logrus.FieldLogger) logrus.FieldLogger {
	if log, ok := ctx.Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return log
	}
	return fallback
}

// Discard is a logger that drops everything, for tests and tools.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}
