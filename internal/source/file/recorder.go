package file

import (
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
)

// Recorder writes datagrams into a pcap file with a raw IP link type.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *pcapgo.Writer
}

// Create truncates path and writes the pcap file header.
func Create(path string, snapLen int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create pcap file")
	}

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(uint32(snapLen), layers.LinkTypeRaw); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write pcap header")
	}
	return &Recorder{file: f, writer: w}, nil
}

func (r *Recorder) Write(ts time.Time, datagram []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return os.ErrClosed
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(datagram),
		Length:        len(datagram),
	}
	return r.writer.WritePacket(ci, datagram)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file, r.writer = nil, nil
	return err
}
