// Package console implements a report sink that prints blocks to a terminal stream.
package console

import (
	"io"
	"os"
	"sync"
)

const Name = "console"

type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewSink creates a console sink writing to out, or stdout when out is nil.
func NewSink(out io.Writer) *Sink {
	if out == nil {
		out = os.Stdout
	}
	return &Sink{out: out}
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Append(block []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.out.Write(block)
	return err
}

func (s *Sink) Close() error {
	return nil
}
