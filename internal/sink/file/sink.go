// Package file implements an append-only report sink backed by a rotating file.
package file

import (
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const Name = "file"

// Options configures the report file and its rotation.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Sink struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
}

// NewSink creates a file sink. The file is opened lazily on the first append.
func NewSink(opts Options) *Sink {
	return &Sink{
		writer: &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		},
	}
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Append(block []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.writer.Write(block)
	return err
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Close()
}
