// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"golang.org/x/net/ipv4"

	"firestige.xyz/ipsniff/internal/core"
)

const (
	ipv4HeaderMinLen = ipv4.HeaderLen // 20
	ipv4MinIHL       = ipv4HeaderMinLen / 4
)

// DecodeIPv4 decodes the IPv4 header at the start of data.
// Only bytes within len(data) are read, whatever the header claims.
func DecodeIPv4(data []byte) (core.IPv4Header, error) {
	if len(data) < ipv4HeaderMinLen {
		return core.IPv4Header{}, fmt.Errorf("%w: %d bytes, need at least %d",
			core.ErrMalformedHeader, len(data), ipv4HeaderMinLen)
	}

	// IHL (Internet Header Length) - lower 4 bits of first byte, in 32-bit words
	ihl := data[0] & 0x0F
	if ihl < ipv4MinIHL {
		return core.IPv4Header{}, fmt.Errorf("%w: header length %d words, need at least %d",
			core.ErrMalformedHeader, ihl, ipv4MinIHL)
	}
	if headerLen := int(ihl) * 4; headerLen > len(data) {
		return core.IPv4Header{}, fmt.Errorf("%w: header length %d bytes exceeds %d received",
			core.ErrMalformedHeader, headerLen, len(data))
	}

	ip := core.IPv4Header{
		Version: data[0] >> 4,
		IHL:     ihl,
		TOS:     data[1],
	}

	// Total Length (2 bytes at offset 2)
	ip.TotalLength = binary.BigEndian.Uint16(data[2:4])

	// Identification (2 bytes at offset 4)
	ip.ID = binary.BigEndian.Uint16(data[4:6])

	// Flags and Fragment Offset (2 bytes at offset 6)
	ip.FragmentOffset = binary.BigEndian.Uint16(data[6:8])

	// TTL (1 byte at offset 8)
	ip.TTL = data[8]

	// Protocol (1 byte at offset 9)
	ip.Protocol = data[9]

	// Header Checksum (2 bytes at offset 10)
	ip.Checksum = binary.BigEndian.Uint16(data[10:12])

	// Source IP (4 bytes at offset 12)
	ip.SrcIP = netip.AddrFrom4([4]byte(data[12:16]))

	// Destination IP (4 bytes at offset 16)
	ip.DstIP = netip.AddrFrom4([4]byte(data[16:20]))

	return ip, nil
}
