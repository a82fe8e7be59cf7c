package network

import (
	"errors"
	"fmt"
	"net"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

var (
	ErrChannelUnavailable = errors.New("unable to open socket")
	ErrSendFailed         = errors.New("send failed")
	ErrFrameTooLarge      = errors.New("frame exceeds MTU")
	ErrUntrustedPort      = errors.New("datagram from untrusted port")
	ErrUntrustedAddress   = errors.New("datagram from non-loopback address")
	ErrInvalidBackend     = errors.New("invalid backend address")
)

// DefaultBackend is the xchat daemon's well-known loopback endpoint
var DefaultBackend = fmt.Sprintf("/ip4/127.0.0.1/udp/%d", protocol.BackendPort)

// Channel owns the UDP socket shared with the xchat daemon.
//
// Only the daemon, bound to the backend port on a loopback address, is a
// legitimate source of frames. The dispatcher applies CheckOrigin to every
// datagram before decoding it.
//
// *net.UDPConn supports concurrent reads and writes, so one goroutine may
// block in Receive while any number of others call Send.
type Channel struct {
	conn    net.PacketConn
	backend *net.UDPAddr
}

// ParseBackend parses a multiaddr such as /ip4/127.0.0.1/udp/41244 into the
// daemon's UDP address. Only UDP on a loopback address is accepted.
func ParseBackend(addr string) (*net.UDPAddr, error) {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackend, err)
	}

	netAddr, err := manet.ToNetAddr(maddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackend, err)
	}

	udpAddr, ok := netAddr.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a udp address", ErrInvalidBackend, addr)
	}
	if !udpAddr.IP.IsLoopback() {
		return nil, fmt.Errorf("%w: %s is not a loopback address", ErrInvalidBackend, addr)
	}

	return udpAddr, nil
}

// Open binds an ephemeral loopback UDP socket in the backend's address
// family. There is no degraded mode without a socket: callers treat an error
// as fatal.
func Open(backend *net.UDPAddr) (*Channel, error) {
	network, local := "udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}
	if backend.IP.To4() == nil {
		network, local = "udp6", &net.UDPAddr{IP: net.IPv6loopback}
	}

	conn, err := net.ListenUDP(network, local)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	return NewChannel(conn, backend), nil
}

// NewChannel wraps an existing packet connection
func NewChannel(conn net.PacketConn, backend *net.UDPAddr) *Channel {
	return &Channel{
		conn:    conn,
		backend: backend,
	}
}

// Send writes one frame to the daemon. Errors are reported to the caller and
// never affect the receive side.
func (c *Channel) Send(frame []byte) error {
	if len(frame) > protocol.MTU {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame))
	}

	if _, err := c.conn.WriteTo(frame, c.backend); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return nil
}

// Receive blocks until a datagram arrives and returns its source and size
func (c *Channel) Receive(buf []byte) (net.Addr, int, error) {
	n, addr, err := c.conn.ReadFrom(buf)
	if err != nil {
		return nil, 0, err
	}
	return addr, n, nil
}

// CheckOrigin reports whether a datagram from addr may be treated as daemon
// traffic.
func (c *Channel) CheckOrigin(addr net.Addr) error {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUntrustedAddress, addr)
	}

	if udpAddr.Port != c.backend.Port {
		return fmt.Errorf("%w: packet from port %d, only accepting from %d",
			ErrUntrustedPort, udpAddr.Port, c.backend.Port)
	}

	if !udpAddr.IP.IsLoopback() {
		return fmt.Errorf("%w: packet from address %s", ErrUntrustedAddress, udpAddr.IP)
	}

	return nil
}

// Backend returns the daemon's address
func (c *Channel) Backend() *net.UDPAddr {
	return c.backend
}

// BackendMultiaddr returns the daemon's address in multiaddr form
func (c *Channel) BackendMultiaddr() string {
	maddr, err := manet.FromNetAddr(c.backend)
	if err != nil {
		return c.backend.String()
	}
	return maddr.String()
}

// LocalAddr returns the address the socket is bound to
func (c *Channel) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close releases the socket
func (c *Channel) Close() error {
	return c.conn.Close()
}
