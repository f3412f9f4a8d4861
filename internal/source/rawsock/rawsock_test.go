package rawsock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/ipsniff/internal/core"
)

func TestProtocolNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"tcp", 6},
		{"UDP", 17},
		{"icmp", 1},
		{"igmp", 2},
		{"all", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProtocolNumber(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ProtocolNumber("sctp")
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestHtons(t *testing.T) {
	assert.Equal(t, uint16(0x0008), htons(0x0800))
	assert.Equal(t, uint16(0x3412), htons(0x1234))
}

func TestOpenRejectsUnknownProtocol(t *testing.T) {
	_, err := Open(Options{Protocol: "bogus"})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}
