// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// IPv4Header is the decoded view of an IPv4 header.
// It holds copies of the header fields only; byte views of the header and the
// payload come from RawDatagram.Split and live as long as the datagram buffer.
type IPv4Header struct {
	Version        uint8
	IHL            uint8  // Header length in 32-bit words (5..15)
	TOS            uint8  // Type of service
	TotalLength    uint16 // As claimed by the header, not trusted for slicing
	ID             uint16
	FragmentOffset uint16 // Flags (3 bits) + fragment offset (13 bits), as on the wire
	TTL            uint8
	Protocol       uint8 // ICMP=1, IGMP=2, TCP=6, UDP=17
	Checksum       uint16
	SrcIP          netip.Addr
	DstIP          netip.Addr
}

// HeaderLen returns the header length in bytes.
func (h IPv4Header) HeaderLen() int {
	return int(h.IHL) * 4
}
