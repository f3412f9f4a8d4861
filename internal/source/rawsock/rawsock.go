// Package rawsock captures IPv4 datagrams from a raw socket.
package rawsock

import (
	"fmt"
	"strings"
	"time"

	"firestige.xyz/ipsniff/internal/core"
)

// Options configures the raw socket.
type Options struct {
	Protocol    string        // tcp | udp | icmp | igmp | all
	Interface   string        // Empty = every interface
	ReadTimeout time.Duration // 0 = block until a datagram arrives
}

// ProtocolNumber maps a protocol name to its IP protocol number.
// "all" maps to 0 and selects a cooked packet socket instead of an IP raw socket.
func ProtocolNumber(name string) (int, error) {
	switch strings.ToLower(name) {
	case "tcp":
		return int(core.ProtoTCP), nil
	case "udp":
		return int(core.ProtoUDP), nil
	case "icmp":
		return int(core.ProtoICMP), nil
	case "igmp":
		return int(core.ProtoIGMP), nil
	case "all":
		return 0, nil
	default:
		return -1, fmt.Errorf("%w: unsupported raw socket protocol %q", core.ErrConfigInvalid, name)
	}
}

// htons converts a short to network byte order.
func htons(i uint16) uint16 {
	return (i<<8)&0xff00 | i>>8
}
