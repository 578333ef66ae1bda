// Package logging builds the shared log output: stderr when verbose, plus a
// size-rotated file when one is configured.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where logs go.
type Options struct {
	Verbose    bool   // also write to stderr
	File       string // rotated log file; empty disables
	MaxSize    int    // megabytes before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Output is the configured log destination.
type Output struct {
	w    io.Writer
	file *lumberjack.Logger
}

// New creates the log destination and points the standard logger at it.
// With neither Verbose nor File set, logs are discarded.
func New(opts Options) (*Output, error) {
	var writers []io.Writer
	if opts.Verbose {
		writers = append(writers, os.Stderr)
	}

	out := &Output{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, err
		}
		out.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}
		writers = append(writers, out.file)
	}

	switch len(writers) {
	case 0:
		out.w = io.Discard
	case 1:
		out.w = writers[0]
	default:
		out.w = io.MultiWriter(writers...)
	}

	log.SetOutput(out.w)
	return out, nil
}

// Logger returns a logger for one component, prefixed "[component] ".
func (o *Output) Logger(component string) *log.Logger {
	return log.New(o.w, "["+component+"] ", log.LstdFlags)
}

// Writer returns the underlying writer.
func (o *Output) Writer() io.Writer {
	return o.w
}

// Close flushes and closes the log file, if any.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}
