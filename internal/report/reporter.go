package report

import (
	"firestige.xyz/ipsniff/internal/core"
)

// Appender is the part of a sink the reporter needs. Append must not retain block.
type Appender interface {
	Append(block []byte) error
}

// Reporter formats datagrams and hands the blocks to a sink.
type Reporter struct {
	sink Appender
}

// NewReporter creates a reporter writing to sink.
func NewReporter(sink Appender) *Reporter {
	return &Reporter{sink: sink}
}

// Emit formats raw and appends the block to the sink.
func (r *Reporter) Emit(raw core.RawDatagram, hdr core.IPv4Header) error {
	buf := pool.Get()
	defer pool.Put(buf)

	writeTo(buf, raw, hdr)
	return r.sink.Append(buf.B)
}
