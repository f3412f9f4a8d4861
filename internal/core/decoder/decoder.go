// Package decoder implements IPv4 header decoding.
package decoder

import "firestige.xyz/ipsniff/internal/core"

// Decoder decodes the network-layer header of a raw datagram.
type Decoder interface {
	Decode(raw core.RawDatagram) (core.IPv4Header, error)
}

// IPv4Decoder is the stateless Decoder used by the capture loop.
type IPv4Decoder struct{}

// NewIPv4Decoder creates an IPv4 decoder.
func NewIPv4Decoder() *IPv4Decoder {
	return &IPv4Decoder{}
}

// Decode decodes the IPv4 header at the start of raw.Data.
func (IPv4Decoder) Decode(raw core.RawDatagram) (core.IPv4Header, error) {
	return DecodeIPv4(raw.Data)
}
