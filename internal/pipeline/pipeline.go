// Package pipeline implements the capture loop.
package pipeline

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"firestige.xyz/ipsniff/internal/core"
	"firestige.xyz/ipsniff/internal/core/decoder"
	"firestige.xyz/ipsniff/internal/log"
	"firestige.xyz/ipsniff/internal/metrics"
	"firestige.xyz/ipsniff/internal/source"
)

// DefaultBufferSize fits the largest IPv4 datagram.
const DefaultBufferSize = 65536

// State is the capture loop state. A pipeline is IDLE until Run, RUNNING
// inside Run, and STOPPED for good once Run returns.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "IDLE"
	}
}

// Emitter turns a classified datagram into a persisted report.
type Emitter interface {
	Emit(raw core.RawDatagram, hdr core.IPv4Header) error
}

// Config contains pipeline configuration.
type Config struct {
	Source     source.Source
	Decoder    decoder.Decoder   // Defaults to IPv4Decoder
	Emitter    Emitter           // Receives TCP and UDP datagrams
	Counters   *Counters         // Optional; shared with async sink error callbacks
	Status     *StatusLine       // Optional
	Metrics    *metrics.Recorder // Optional
	BufferSize int               // Receive buffer size
}

// Pipeline runs one capture session: receive, decode, classify, count, report.
type Pipeline struct {
	src      source.Source
	decoder  decoder.Decoder
	emitter  Emitter
	counters *Counters
	status   *StatusLine
	metrics  *metrics.Recorder
	buf      []byte
	state    atomic.Int32
	warns    *warnLimiter
	now      func() time.Time
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Decoder == nil {
		cfg.Decoder = decoder.NewIPv4Decoder()
	}
	if cfg.Counters == nil {
		cfg.Counters = &Counters{}
	}

	return &Pipeline{
		src:      cfg.Source,
		decoder:  cfg.Decoder,
		emitter:  cfg.Emitter,
		counters: cfg.Counters,
		status:   cfg.Status,
		metrics:  cfg.Metrics,
		buf:      make([]byte, cfg.BufferSize),
		warns:    newWarnLimiter(10, 10*time.Second),
		now:      time.Now,
	}
}

var (
	errAlreadyRunning = errors.New("pipeline already running")
	errStopped        = errors.New("pipeline already stopped")
)

// Run captures until ctx is cancelled, the source is exhausted, or the source
// fails. Only a source failure is returned; it is a *core.CaptureError.
// A pipeline runs once.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if p.State() == StateRunning {
			return errAlreadyRunning
		}
		return errStopped
	}
	p.metrics.SetRunning(true)
	log.GetLogger().Info("capture started")

	err := p.loop(ctx)

	p.state.Store(int32(StateStopped))
	p.metrics.SetRunning(false)
	if p.status != nil {
		p.status.Finish(p.counters.Snapshot())
	}

	st := p.counters.Snapshot()
	entry := log.GetLogger().WithFields(map[string]interface{}{
		"total":     st.Total,
		"malformed": st.Malformed,
		"reported":  st.Reported,
		"dropped":   st.Dropped,
	})
	if err != nil {
		entry.WithError(err).Error("capture failed")
		return err
	}
	entry.Info("capture stopped")
	return nil
}

func (p *Pipeline) loop(ctx context.Context) error {
	for {
		n, err := p.src.Receive(ctx, p.buf)
		if err != nil {
			return stopReason(err)
		}

		p.handle(core.NewRawDatagram(p.buf, n, p.now()))

		if ctx.Err() != nil {
			return nil
		}
	}
}

// stopReason maps a receive error to Run's result: nil for an orderly stop.
func stopReason(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	case errors.Is(err, core.ErrCapture):
		return err
	default:
		return &core.CaptureError{Op: "receive", Err: err}
	}
}

func (p *Pipeline) handle(raw core.RawDatagram) {
	defer p.updateStatus(raw.Timestamp)

	hdr, err := p.decoder.Decode(raw)
	if err != nil {
		p.counters.Record(core.CategoryOther)
		p.counters.Malformed.Add(1)
		p.metrics.Packet(core.CategoryOther)
		p.metrics.Malformed()
		if log.GetLogger().IsDebugEnabled() {
			log.GetLogger().WithError(err).WithField("length", raw.Length).Debug("malformed datagram")
		}
		return
	}

	cat := core.Classify(hdr.Protocol)
	p.counters.Record(cat)
	p.metrics.Packet(cat)

	if !cat.Reportable() || p.emitter == nil {
		return
	}
	if err := p.emitter.Emit(raw, hdr); err != nil {
		p.RecordDropped(err)
		return
	}
	p.counters.Reported.Add(1)
	p.metrics.Reported()
}

// RecordDropped counts a report lost to a sink failure. Async sinks call it
// from their writer goroutine.
func (p *Pipeline) RecordDropped(err error) {
	p.counters.Dropped.Add(1)
	p.metrics.Dropped()

	ok, suppressed := p.warns.Allow(p.now())
	if suppressed > 0 {
		log.GetLogger().WithField("suppressed", suppressed).Warn("sink write warnings suppressed")
	}
	if ok {
		log.GetLogger().WithError(err).Warn("report dropped")
	}
}

func (p *Pipeline) updateStatus(now time.Time) {
	if p.status != nil {
		p.status.Update(p.counters.Snapshot(), now)
	}
}

// State returns the current loop state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Stats returns capture statistics.
func (p *Pipeline) Stats() Stats {
	return p.counters.Snapshot()
}
