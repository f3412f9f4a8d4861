// Package source provides the capture sources feeding the capture loop.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firestige.xyz/ipsniff/internal/config"
	"firestige.xyz/ipsniff/internal/core"
	"firestige.xyz/ipsniff/internal/log"
	"firestige.xyz/ipsniff/internal/source/file"
	"firestige.xyz/ipsniff/internal/source/rawsock"
)

// Source delivers one network-layer datagram per Receive call.
//
// Receive blocks until a datagram is copied into buf and returns its length.
// It returns ctx.Err() once ctx is cancelled, io.EOF when a finite source is
// exhausted, and a *core.CaptureError on OS-level failure.
type Source interface {
	Receive(ctx context.Context, buf []byte) (int, error)
	Close() error
}

// New opens the source described by cfg and wraps it with a recorder when
// cfg.Record is set.
func New(cfg config.CaptureConfig) (Source, error) {
	var src Source
	switch cfg.Source {
	case config.SourceRaw:
		s, err := rawsock.Open(rawsock.Options{
			Protocol:    cfg.Protocol,
			Interface:   cfg.Interface,
			ReadTimeout: cfg.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		src = s
	case config.SourceFile:
		s, err := file.Open(cfg.File)
		if err != nil {
			return nil, err
		}
		src = s
	default:
		return nil, fmt.Errorf("%w: unknown capture source %q", core.ErrConfigInvalid, cfg.Source)
	}

	if cfg.Record == "" {
		return src, nil
	}
	rec, err := file.Create(cfg.Record, cfg.SnapLen)
	if err != nil {
		src.Close()
		return nil, err
	}
	return NewRecording(src, rec), nil
}

// Recorder persists received datagrams.
type Recorder interface {
	Write(ts time.Time, datagram []byte) error
	Close() error
}

// Recording copies every datagram received from a Source to a Recorder.
type Recording struct {
	Source
	rec Recorder
}

// NewRecording wraps src so every received datagram is also written to rec.
func NewRecording(src Source, rec Recorder) *Recording {
	return &Recording{Source: src, rec: rec}
}

func (r *Recording) Receive(ctx context.Context, buf []byte) (int, error) {
	n, err := r.Source.Receive(ctx, buf)
	if err != nil {
		return n, err
	}
	if werr := r.rec.Write(time.Now(), buf[:n]); werr != nil {
		log.GetLogger().WithError(werr).Warn("failed to record datagram")
	}
	return n, nil
}

func (r *Recording) Close() error {
	return errors.Join(r.Source.Close(), r.rec.Close())
}
