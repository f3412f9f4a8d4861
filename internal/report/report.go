// Package report composes the persisted text block for one captured datagram.
package report

import (
	"fmt"

	"github.com/valyala/bytebufferpool"

	"firestige.xyz/ipsniff/internal/core"
	"firestige.xyz/ipsniff/internal/hexdump"
)

const (
	bannerStars = "***********************"
	dataBanner  = "                        DATA Dump                         "
	closingLine = "###########################################################"
	rowIndent   = "   "
)

var pool bytebufferpool.Pool

// Banner returns the opening line of a report for the given category.
func Banner(c core.Category) string {
	return bannerStars + c.String() + " Packet" + "*************************"
}

// Format renders the report block for raw. hdr must have been decoded from raw.
// The returned slice is owned by the caller.
func Format(raw core.RawDatagram, hdr core.IPv4Header) []byte {
	buf := pool.Get()
	defer pool.Put(buf)

	writeTo(buf, raw, hdr)
	return append([]byte(nil), buf.B...)
}

func writeTo(buf *bytebufferpool.ByteBuffer, raw core.RawDatagram, hdr core.IPv4Header) {
	header, payload := raw.Split(hdr)

	buf.WriteString("\n\n")
	buf.WriteString(Banner(core.Classify(hdr.Protocol)))
	buf.WriteString("\n")

	writeIPHeader(buf, hdr)

	buf.WriteString("\n")
	buf.WriteString(dataBanner)
	buf.WriteString("\n")

	buf.WriteString("IP Header\n")
	// Writes to a ByteBuffer never fail
	_ = hexdump.Write(buf, rowIndent, header)

	buf.WriteString("Data Payload\n")
	_ = hexdump.Write(buf, rowIndent, payload)

	buf.WriteString("\n")
	buf.WriteString(closingLine)
	buf.WriteString("\n")
}

func writeIPHeader(buf *bytebufferpool.ByteBuffer, hdr core.IPv4Header) {
	buf.WriteString("\n")
	buf.WriteString("IP Header\n")
	fmt.Fprintf(buf, "   |-IP Version        : %d\n", hdr.Version)
	fmt.Fprintf(buf, "   |-IP Header Length  : %d DWORDS or %d Bytes\n", hdr.IHL, hdr.HeaderLen())
	fmt.Fprintf(buf, "   |-Type Of Service   : %d\n", hdr.TOS)
	fmt.Fprintf(buf, "   |-IP Total Length   : %d  Bytes(Size of Packet)\n", hdr.TotalLength)
	fmt.Fprintf(buf, "   |-Identification    : %d\n", hdr.ID)
	fmt.Fprintf(buf, "   |-Fragment OFF      : %d\n", hdr.FragmentOffset)
	fmt.Fprintf(buf, "   |-TTL      : %d\n", hdr.TTL)
	fmt.Fprintf(buf, "   |-Protocol : %d\n", hdr.Protocol)
	fmt.Fprintf(buf, "   |-Checksum : %d\n", hdr.Checksum)
	fmt.Fprintf(buf, "   |-Source IP        : %s\n", hdr.SrcIP)
	fmt.Fprintf(buf, "   |-Destination IP   : %s\n", hdr.DstIP)
}
