//go:build !linux

package rawsock

import (
	"context"
	"errors"

	"firestige.xyz/ipsniff/internal/core"
)

var errUnsupported = errors.New("raw capture is only supported on linux")

// Source is unavailable on this platform.
type Source struct{}

func Open(opts Options) (*Source, error) {
	if _, err := ProtocolNumber(opts.Protocol); err != nil {
		return nil, err
	}
	return nil, &core.CaptureError{Op: "socket", Err: errUnsupported}
}

func (s *Source) Receive(ctx context.Context, buf []byte) (int, error) {
	return 0, &core.CaptureError{Op: "recvfrom", Err: errUnsupported}
}

func (s *Source) Close() error { return nil }
