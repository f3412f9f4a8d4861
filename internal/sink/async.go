package sink

import (
	"sync"

	"firestige.xyz/ipsniff/internal/core"
	"firestige.xyz/ipsniff/internal/log"
)

const defaultQueueSize = 1024

// AsyncConfig configures an Async sink.
type AsyncConfig struct {
	QueueSize int
	OnError   func(error) // Called from the writer goroutine on each failed append
}

// Async moves appends to a background writer through a bounded queue:
//
//	capture loop → Async.Append() → queue → writeLoop → inner.Append()
//
// Append blocks while the queue is full, blocks are written in Append order,
// and Close drains the queue before closing the inner sink.
type Async struct {
	inner   Sink
	onError func(error)

	queue  chan []byte
	doneCh chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsync wraps inner and starts its writer goroutine.
func NewAsync(inner Sink, cfg AsyncConfig) *Async {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	a := &Async{
		inner:   inner,
		onError: cfg.OnError,
		queue:   make(chan []byte, size),
		doneCh:  make(chan struct{}),
	}
	go a.writeLoop()
	return a
}

func (a *Async) Name() string { return a.inner.Name() }

// Append copies block and enqueues it. The caller may reuse block afterwards.
func (a *Async) Append(block []byte) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return core.ErrSinkClosed
	}
	a.queue <- append([]byte(nil), block...)
	return nil
}

// Pending returns the number of queued blocks not yet written.
func (a *Async) Pending() int {
	return len(a.queue)
}

// Close stops accepting blocks, waits for the queue to drain and closes the inner sink.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.doneCh
	return a.inner.Close()
}

func (a *Async) writeLoop() {
	defer close(a.doneCh)

	for block := range a.queue {
		if err := a.inner.Append(block); err != nil {
			werr := &core.SinkWriteError{Sink: a.inner.Name(), Err: err}
			if a.onError != nil {
				a.onError(werr)
				continue
			}
			log.GetLogger().WithError(err).WithField("sink", a.inner.Name()).Warn("report write failed")
		}
	}
}
