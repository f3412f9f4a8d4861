package core

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"testing"
	"time"
)

func TestStructZeroValues(t *testing.T) {
	t.Run("IPv4Header", func(t *testing.T) {
		var ip IPv4Header
		if ip.Version != 0 {
			t.Errorf("expected Version=0, got %d", ip.Version)
		}
		if ip.SrcIP.IsValid() {
			t.Errorf("expected invalid SrcIP, got %v", ip.SrcIP)
		}
		if ip.HeaderLen() != 0 {
			t.Errorf("expected HeaderLen=0, got %d", ip.HeaderLen())
		}
	})

	t.Run("RawDatagram", func(t *testing.T) {
		var raw RawDatagram
		if raw.Data != nil {
			t.Errorf("expected Data=nil, got %v", raw.Data)
		}
		if !raw.Timestamp.IsZero() {
			t.Errorf("expected zero Timestamp, got %v", raw.Timestamp)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		proto uint8
		want  Category
	}{
		{1, CategoryICMP},
		{2, CategoryIGMP},
		{6, CategoryTCP},
		{17, CategoryUDP},
		{0, CategoryOther},
		{4, CategoryOther},
		{41, CategoryOther},
		{132, CategoryOther},
		{255, CategoryOther},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("proto_%d", tt.proto), func(t *testing.T) {
			if got := Classify(tt.proto); got != tt.want {
				t.Errorf("Classify(%d) = %v, want %v", tt.proto, got, tt.want)
			}
		})
	}
}

func TestClassifyTotal(t *testing.T) {
	for p := 0; p <= 255; p++ {
		c := Classify(uint8(p))
		if c > CategoryUDP {
			t.Fatalf("Classify(%d) returned unknown category %d", p, c)
		}
	}
}

func TestCategoryReportable(t *testing.T) {
	for _, c := range Categories {
		want := c == CategoryTCP || c == CategoryUDP
		if c.Reportable() != want {
			t.Errorf("%v.Reportable() = %v, want %v", c, c.Reportable(), want)
		}
	}
}

func TestNewRawDatagramClampsLength(t *testing.T) {
	buf := make([]byte, 8)
	now := time.Now()

	d := NewRawDatagram(buf, 20, now)
	if d.Length != 8 || len(d.Data) != 8 {
		t.Errorf("expected length clamped to 8, got Length=%d len=%d", d.Length, len(d.Data))
	}

	d = NewRawDatagram(buf, -1, now)
	if d.Length != 0 || len(d.Data) != 0 {
		t.Errorf("expected empty datagram, got Length=%d", d.Length)
	}
}

func TestRawDatagramSplit(t *testing.T) {
	buf := make([]byte, 40)
	for i := range buf {
		buf[i] = byte(i)
	}
	d := NewRawDatagram(buf, len(buf), time.Time{})

	t.Run("normal", func(t *testing.T) {
		hdr, payload := d.Split(IPv4Header{IHL: 5})
		if len(hdr) != 20 || len(payload) != 20 {
			t.Fatalf("expected 20/20, got %d/%d", len(hdr), len(payload))
		}
		if payload[0] != 20 {
			t.Errorf("payload should start at offset 20, got first byte %d", payload[0])
		}
	})

	t.Run("header claims more than received", func(t *testing.T) {
		hdr, payload := d.Split(IPv4Header{IHL: 15})
		if len(hdr) != 40 || len(payload) != 0 {
			t.Errorf("expected split bounded by received length, got %d/%d", len(hdr), len(payload))
		}
	})
}

func TestSentinelErrors(t *testing.T) {
	errs := []error{ErrCapture, ErrMalformedHeader, ErrSinkWrite, ErrSinkClosed, ErrConfigInvalid}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestCaptureError(t *testing.T) {
	err := fmt.Errorf("loop: %w", &CaptureError{Op: "recvfrom", Err: io.ErrUnexpectedEOF})

	if !errors.Is(err, ErrCapture) {
		t.Error("expected errors.Is(err, ErrCapture)")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected cause to be reachable")
	}

	var ce *CaptureError
	if !errors.As(err, &ce) || ce.Op != "recvfrom" {
		t.Errorf("expected CaptureError with Op=recvfrom, got %v", ce)
	}
}

func TestSinkWriteError(t *testing.T) {
	err := &SinkWriteError{Sink: "file", Err: io.ErrShortWrite}
	if !errors.Is(err, ErrSinkWrite) {
		t.Error("expected errors.Is(err, ErrSinkWrite)")
	}
	if errors.Is(err, ErrCapture) {
		t.Error("sink error must not look like a capture error")
	}
	if err.Error() != "ipsniff: sink file write: short write" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIPv4HeaderAddrs(t *testing.T) {
	h := IPv4Header{
		SrcIP: netip.AddrFrom4([4]byte{10, 0, 0, 1}),
		DstIP: netip.AddrFrom4([4]byte{192, 168, 1, 255}),
	}
	if h.SrcIP.String() != "10.0.0.1" || h.DstIP.String() != "192.168.1.255" {
		t.Errorf("unexpected dotted-decimal rendering: %s %s", h.SrcIP, h.DstIP)
	}
}
