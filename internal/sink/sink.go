// Package sink defines where packet reports are stored.
package sink

import (
	"fmt"
	"os"

	"firestige.xyz/ipsniff/internal/config"
	"firestige.xyz/ipsniff/internal/core"
	"firestige.xyz/ipsniff/internal/sink/console"
	"firestige.xyz/ipsniff/internal/sink/file"
)

// Sink accepts report blocks in order for append-only storage.
type Sink interface {
	Name() string
	Append(block []byte) error
	Close() error
}

// New creates the sink described by cfg. Async sinks report background write
// failures to onError, which may be nil.
func New(cfg config.SinkConfig, onError func(error)) (Sink, error) {
	var s Sink
	switch cfg.Type {
	case config.SinkFile:
		s = file.NewSink(file.Options{
			Path:       cfg.Path,
			MaxSizeMB:  cfg.Rotation.MaxSizeMB,
			MaxBackups: cfg.Rotation.MaxBackups,
			MaxAgeDays: cfg.Rotation.MaxAgeDays,
			Compress:   cfg.Rotation.Compress,
		})
	case config.SinkConsole:
		s = console.NewSink(os.Stdout)
	default:
		return nil, fmt.Errorf("%w: unknown sink type %q", core.ErrConfigInvalid, cfg.Type)
	}

	if cfg.Async {
		return NewAsync(s, AsyncConfig{QueueSize: cfg.QueueSize, OnError: onError}), nil
	}
	return &checked{Sink: s}, nil
}

// checked wraps write failures of a synchronous sink into SinkWriteError.
type checked struct {
	Sink
}

func (c *checked) Append(block []byte) error {
	if err := c.Sink.Append(block); err != nil {
		return &core.SinkWriteError{Sink: c.Sink.Name(), Err: err}
	}
	return nil
}
