package network

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		wantIP   net.IP
		wantPort int
		wantErr  bool
	}{
		{"default", DefaultBackend, net.IPv4(127, 0, 0, 1), 0xA11C, false},
		{"other loopback", "/ip4/127.0.0.2/udp/9000", net.IPv4(127, 0, 0, 2), 9000, false},
		{"ipv6 loopback", "/ip6/::1/udp/41244", net.IPv6loopback, 41244, false},
		{"tcp", "/ip4/127.0.0.1/tcp/41244", nil, 0, true},
		{"not loopback", "/ip4/10.0.0.1/udp/41244", nil, 0, true},
		{"garbage", "127.0.0.1:41244", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseBackend(tt.addr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBackend)
				return
			}
			require.NoError(t, err)
			assert.True(t, addr.IP.Equal(tt.wantIP), "ip = %s", addr.IP)
			assert.Equal(t, tt.wantPort, addr.Port)
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	ch := NewChannel(newFakeConn(), defaultBackendAddr())

	tests := []struct {
		name    string
		addr    net.Addr
		wantErr error
	}{
		{"backend", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0xA11C}, nil},
		{"other loopback", &net.UDPAddr{IP: net.IPv4(127, 1, 2, 3), Port: 0xA11C}, nil},
		{"ipv6 loopback", &net.UDPAddr{IP: net.IPv6loopback, Port: 0xA11C}, nil},
		{"wrong port", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000}, ErrUntrustedPort},
		{"remote address", &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 0xA11C}, ErrUntrustedAddress},
		{"not udp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0xA11C}, ErrUntrustedAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ch.CheckOrigin(tt.addr)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestChannelSendReceive(t *testing.T) {
	backend := newFakeBackend(t)

	ch, err := Open(backend.addr())
	require.NoError(t, err)
	defer ch.Close()

	frame := protocol.EncodeKeyFrame("bob", "xyz", "", 5)
	require.NoError(t, ch.Send(frame))
	assert.Equal(t, frame, backend.read(t))

	reply := protocol.EncodeKeyFrame("bob", "", "", 1)
	backend.write(t, reply)

	buf := make([]byte, protocol.MTU)
	addr, n, err := ch.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, reply, buf[:n])
	assert.NoError(t, ch.CheckOrigin(addr))
}

func TestChannelOpenBindsLoopback(t *testing.T) {
	ch, err := Open(defaultBackendAddr())
	require.NoError(t, err)
	defer ch.Close()

	local := ch.LocalAddr().(*net.UDPAddr)
	assert.True(t, local.IP.IsLoopback())
	assert.NotZero(t, local.Port)
	assert.Equal(t, DefaultBackend, ch.BackendMultiaddr())
}

func TestChannelSendTooLarge(t *testing.T) {
	conn := newFakeConn()
	ch := NewChannel(conn, defaultBackendAddr())

	err := ch.Send(make([]byte, protocol.MTU+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Empty(t, conn.frames())

	assert.NoError(t, ch.Send(make([]byte, protocol.MTU)))
}

func TestChannelSendFailure(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errFake
	ch := NewChannel(conn, defaultBackendAddr())

	err := ch.Send([]byte("frame"))
	assert.ErrorIs(t, err, ErrSendFailed)
}
