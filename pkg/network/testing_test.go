package network

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// receivedMessage records one MessageReceived call
type receivedMessage struct {
	peer            string
	timestampMillis int64
	text            string
}

// recordingConsumer collects events on channels so tests can wait for them
type recordingConsumer struct {
	messages chan receivedMessage
	contacts chan string
}

func newRecordingConsumer() *recordingConsumer {
	return &recordingConsumer{
		messages: make(chan receivedMessage, 16),
		contacts: make(chan string, 16),
	}
}

func (r *recordingConsumer) MessageReceived(peer string, timestampMillis int64, text string) {
	r.messages <- receivedMessage{peer, timestampMillis, text}
}

func (r *recordingConsumer) ContactCreated(peer string) {
	r.contacts <- peer
}

func (r *recordingConsumer) nextMessage(t *testing.T) receivedMessage {
	t.Helper()
	select {
	case m := <-r.messages:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return receivedMessage{}
	}
}

func (r *recordingConsumer) nextContact(t *testing.T) string {
	t.Helper()
	select {
	case c := <-r.contacts:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for contact")
		return ""
	}
}

// fakeBackend is a loopback UDP socket standing in for the xchat daemon
type fakeBackend struct {
	conn   *net.UDPConn
	client net.Addr
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &fakeBackend{conn: conn}
}

func (b *fakeBackend) addr() *net.UDPAddr {
	return b.conn.LocalAddr().(*net.UDPAddr)
}

// read waits for the next datagram from the bridge and remembers its source
func (b *fakeBackend) read(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 65535)
	require.NoError(t, b.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, addr, err := b.conn.ReadFrom(buf)
	require.NoError(t, err)
	b.client = addr
	return buf[:n]
}

func (b *fakeBackend) write(t *testing.T, frame []byte) {
	t.Helper()
	require.NotNil(t, b.client, "backend has not heard from the bridge yet")
	_, err := b.conn.WriteTo(frame, b.client)
	require.NoError(t, err)
}

var errFake = errors.New("fake socket failure")

// fakeConn is a net.PacketConn whose reads and writes can be made to fail
type fakeConn struct {
	mu       sync.Mutex
	readErr  error
	writeErr error
	written  [][]byte
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	f.mu.Lock()
	err := f.readErr
	f.mu.Unlock()
	if err != nil {
		return 0, nil, err
	}
	<-f.closed
	return 0, nil, net.ErrClosed
}

func (f *fakeConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000}
}

func (f *fakeConn) SetDeadline(time.Time) error      { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

func defaultBackendAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0xA11C}
}
