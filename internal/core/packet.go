// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawDatagram is one network-layer datagram as received from a capture source.
// Data aliases the capture loop's receive buffer and is overwritten on the next receive.
type RawDatagram struct {
	Data      []byte    // Received bytes, exactly Length long
	Length    int       // Received length
	Timestamp time.Time // Receive timestamp
}

// NewRawDatagram wraps the first n bytes of buf.
func NewRawDatagram(buf []byte, n int, ts time.Time) RawDatagram {
	if n > len(buf) {
		n = len(buf)
	}
	if n < 0 {
		n = 0
	}
	return RawDatagram{Data: buf[:n], Length: n, Timestamp: ts}
}

// Split returns the header bytes and the payload bytes of the datagram.
// Both are bounded by the received length regardless of what hdr claims.
func (d RawDatagram) Split(hdr IPv4Header) (header, payload []byte) {
	hl := hdr.HeaderLen()
	if hl > len(d.Data) {
		hl = len(d.Data)
	}
	return d.Data[:hl], d.Data[hl:]
}
