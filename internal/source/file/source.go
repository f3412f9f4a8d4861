// Package file replays datagrams from pcap or pcapng captures and records
// live traffic into pcap files.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"

	"firestige.xyz/ipsniff/internal/core"
	"firestige.xyz/ipsniff/internal/log"
)

const Name = "file"

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Source yields the IPv4 datagram carried by every record of a capture file.
// Records that do not carry IPv4 are skipped.
type Source struct {
	path    string
	file    *os.File
	reader  packetReader
	skipped uint64
}

// Open opens a pcap or pcapng file for replay.
func Open(path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: capture file path is required", core.ErrConfigInvalid)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.CaptureError{Op: "open " + path, Err: errors.WithStack(err)}
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(len(pcapngMagic))
	if err != nil {
		f.Close()
		return nil, &core.CaptureError{Op: "read " + path, Err: errors.WithStack(err)}
	}

	var r packetReader
	if bytes.Equal(magic, pcapngMagic) {
		r, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		r, err = pcapgo.NewReader(br)
	}
	if err != nil {
		f.Close()
		return nil, &core.CaptureError{Op: "parse " + path, Err: errors.WithStack(err)}
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"path":     path,
		"linktype": r.LinkType().String(),
	}).Info("capture file opened")
	return &Source{path: path, file: f, reader: r}, nil
}

// Receive copies the next IPv4 datagram into buf, truncating it to len(buf).
func (s *Source) Receive(ctx context.Context, buf []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		data, _, err := s.reader.ReadPacketData()
		if err == io.EOF {
			if s.skipped > 0 {
				log.GetLogger().WithField("skipped", s.skipped).Debug("non-IPv4 records skipped")
			}
			return 0, io.EOF
		}
		if err != nil {
			return 0, &core.CaptureError{Op: "read " + s.path, Err: errors.WithStack(err)}
		}

		if n, ok := extractIPv4(data, s.reader.LinkType(), buf); ok {
			return n, nil
		}
		s.skipped++
	}
}

func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// extractIPv4 strips the link layer of a record and copies the network bytes to buf.
// Only the link layer is decoded so datagrams with a broken IPv4 header are still delivered.
func extractIPv4(data []byte, lt layers.LinkType, buf []byte) (int, bool) {
	switch lt {
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		if len(data) > 0 && data[0]>>4 != 4 {
			return 0, false
		}
		return copy(buf, data), true
	}

	pkt := gopacket.NewPacket(data, lt, gopacket.DecodeOptions{NoCopy: true})
	for _, l := range pkt.Layers() {
		next, ok := l.(interface{ NextLayerType() gopacket.LayerType })
		if ok && next.NextLayerType() == layers.LayerTypeIPv4 {
			return copy(buf, trimPadding(l.LayerPayload())), true
		}
	}
	return 0, false
}

// trimPadding drops link-layer padding past the IPv4 total length.
func trimPadding(b []byte) []byte {
	if len(b) < 4 {
		return b
	}
	total := int(binary.BigEndian.Uint16(b[2:4]))
	if total >= ipv4.HeaderLen && total < len(b) {
		return b[:total]
	}
	return b
}
