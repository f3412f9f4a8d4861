//go:build linux

package rawsock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"firestige.xyz/ipsniff/internal/core"
	"firestige.xyz/ipsniff/internal/log"
)

// Source reads whole IPv4 datagrams, header included.
type Source struct {
	fd     int
	wakeFd int // eventfd signalled on cancellation and Close
	opts   Options
	closed atomic.Bool

	mu        sync.Mutex
	watched   context.Context
	stopWatch func() bool
}

var wakeValue = []byte{1, 0, 0, 0, 0, 0, 0, 0}

// Open creates and configures the socket.
func Open(opts Options) (*Source, error) {
	proto, err := ProtocolNumber(opts.Protocol)
	if err != nil {
		return nil, err
	}

	ifindex := 0
	if opts.Interface != "" {
		link, err := netlink.LinkByName(opts.Interface)
		if err != nil {
			return nil, &core.CaptureError{Op: "lookup interface " + opts.Interface, Err: errors.WithStack(err)}
		}
		ifindex = link.Attrs().Index
	}

	var fd int
	if proto == 0 {
		// Cooked packet socket: every IPv4 datagram, link header stripped
		fd, err = unix.Socket(unix.AF_PACKET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, int(htons(unix.ETH_P_IP)))
	} else {
		fd, err = unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, proto)
	}
	if err != nil {
		return nil, &core.CaptureError{Op: "socket", Err: errors.WithStack(err)}
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(fd)
		return nil, &core.CaptureError{Op: "eventfd", Err: errors.WithStack(err)}
	}

	s := &Source{fd: fd, wakeFd: wakeFd, opts: opts}
	if err := s.configure(proto, ifindex); err != nil {
		unix.Close(fd)
		unix.Close(wakeFd)
		return nil, err
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"protocol":  opts.Protocol,
		"interface": opts.Interface,
		"timeout":   opts.ReadTimeout,
	}).Info("raw socket opened")
	return s, nil
}

func (s *Source) configure(proto, ifindex int) error {
	if ifindex > 0 {
		var err error
		if proto == 0 {
			err = unix.Bind(s.fd, &unix.SockaddrLinklayer{Protocol: htons(unix.ETH_P_IP), Ifindex: ifindex})
		} else {
			err = unix.SetsockoptString(s.fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, s.opts.Interface)
		}
		if err != nil {
			return &core.CaptureError{Op: "bind " + s.opts.Interface, Err: errors.WithStack(err)}
		}
	}

	if s.opts.ReadTimeout > 0 {
		tv := unix.NsecToTimeval(s.opts.ReadTimeout.Nanoseconds())
		if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return &core.CaptureError{Op: "set receive timeout", Err: errors.WithStack(err)}
		}
	}
	return nil
}

// Receive blocks for the next datagram. It returns ctx.Err() as soon as ctx
// is cancelled, even while no traffic arrives.
func (s *Source) Receive(ctx context.Context, buf []byte) (int, error) {
	s.watch(ctx)

	flags := 0
	if s.opts.ReadTimeout == 0 {
		flags = unix.MSG_DONTWAIT
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if s.closed.Load() {
			return 0, &core.CaptureError{Op: "recvfrom", Err: errors.New("socket closed")}
		}

		ready, err := s.wait()
		if err != nil {
			return 0, err
		}
		if !ready {
			continue
		}

		n, _, err := unix.Recvfrom(s.fd, buf, flags)
		switch {
		case err == nil:
			return n, nil
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR:
			continue
		case s.closed.Load():
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, &core.CaptureError{Op: "recvfrom", Err: errors.Wrap(err, "socket closed")}
		default:
			return 0, &core.CaptureError{Op: "recvfrom", Err: errors.WithStack(err)}
		}
	}
}

// watch arranges for cancellation of ctx to wake a blocked wait.
func (s *Source) watch(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watched == ctx {
		return
	}
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.watched = ctx
	s.stopWatch = context.AfterFunc(ctx, s.wake)
}

// wait polls the socket and the wake eventfd. It reports whether the socket
// is readable; false means re-check ctx and closed state.
func (s *Source) wait() (bool, error) {
	timeout := -1
	if s.opts.ReadTimeout > 0 {
		timeout = max(int(s.opts.ReadTimeout.Milliseconds()), 1)
	}

	fds := []unix.PollFd{
		{Fd: int32(s.fd), Events: unix.POLLIN},
		{Fd: int32(s.wakeFd), Events: unix.POLLIN},
	}
	_, err := unix.Poll(fds, timeout)
	if err == unix.EINTR {
		return false, nil
	}
	if err != nil {
		return false, &core.CaptureError{Op: "poll", Err: errors.WithStack(err)}
	}

	if fds[1].Revents&unix.POLLIN != 0 {
		var drain [8]byte
		unix.Read(s.wakeFd, drain[:])
		return false, nil
	}
	return fds[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0, nil
}

func (s *Source) wake() {
	unix.Write(s.wakeFd, wakeValue)
}

// Close releases the socket and wakes a concurrent Receive.
func (s *Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.mu.Unlock()

	s.wake()
	err := unix.Close(s.fd)
	if werr := unix.Close(s.wakeFd); err == nil {
		err = werr
	}
	return err
}
