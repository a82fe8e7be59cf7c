package network

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

// startDispatcher runs a dispatcher against a fake backend and waits for
// the greeting
func startDispatcher(t *testing.T) (*Dispatcher, *fakeBackend, *recordingConsumer) {
	t.Helper()

	backend := newFakeBackend(t)
	ch, err := Open(backend.addr())
	require.NoError(t, err)

	consumer := newRecordingConsumer()
	d := NewDispatcher(ch, consumer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("dispatcher did not stop")
		}
	})

	assert.Equal(t, []byte(protocol.Greeting), backend.read(t))
	return d, backend, consumer
}

func TestDispatcherDeliversMessage(t *testing.T) {
	_, backend, consumer := startDispatcher(t)

	backend.write(t, protocol.EncodeMessageFrameAt("alice", "hi", false, time.Unix(1700000000, 0)))

	msg := consumer.nextMessage(t)
	assert.Equal(t, "alice", msg.peer)
	assert.Equal(t, "hi", msg.text)
	assert.Equal(t, int64(1700000000000), msg.timestampMillis)
}

func TestDispatcherDeliversBroadcast(t *testing.T) {
	_, backend, consumer := startDispatcher(t)

	backend.write(t, protocol.EncodeMessageFrameAt("carol", "to all", true, time.Unix(5, 0)))

	msg := consumer.nextMessage(t)
	assert.Equal(t, receivedMessage{"carol", 5000, "to all"}, msg)
}

func TestDispatcherDeliversKeyOffer(t *testing.T) {
	_, backend, consumer := startDispatcher(t)

	backend.write(t, protocol.EncodeKeyFrame("bob", "xyz", "", 5))

	assert.Equal(t, "bob", consumer.nextContact(t))
}

func TestDispatcherState(t *testing.T) {
	d, backend, consumer := startDispatcher(t)

	// A delivered frame proves the loop is past its greeting
	backend.write(t, protocol.EncodeKeyFrame("bob", "", "", 1))
	consumer.nextContact(t)

	assert.Equal(t, StateRunning, d.State())
	assert.Equal(t, "running", d.State().String())
}

func TestDispatcherSkipsBadFrames(t *testing.T) {
	_, backend, consumer := startDispatcher(t)

	secret := protocol.EncodeMessageFrameAt("alice", "s3cret", false, time.Unix(1, 0))
	secret[protocol.HeaderSize-1] = byte(protocol.CodeSecret)
	unknown := protocol.EncodeMessageFrameAt("alice", "??", false, time.Unix(1, 0))
	unknown[protocol.HeaderSize-1] = 42

	backend.write(t, make([]byte, 10))
	backend.write(t, secret)
	backend.write(t, unknown)
	backend.write(t, protocol.EncodeMessageFrameAt("alice", "after", false, time.Unix(2, 0)))

	msg := consumer.nextMessage(t)
	assert.Equal(t, "after", msg.text)
	assert.Empty(t, consumer.contacts)
}

func TestDispatcherRejectsUntrustedPort(t *testing.T) {
	_, backend, consumer := startDispatcher(t)

	intruder, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer intruder.Close()

	_, err = intruder.WriteTo(protocol.EncodeMessageFrameAt("mallory", "spoof", false, time.Unix(1, 0)), backend.client)
	require.NoError(t, err)

	// Datagrams are handled in order; the trusted one arrives after the spoof
	time.Sleep(50 * time.Millisecond)
	backend.write(t, protocol.EncodeMessageFrameAt("alice", "real", false, time.Unix(2, 0)))

	msg := consumer.nextMessage(t)
	assert.Equal(t, "alice", msg.peer)
	assert.Equal(t, "real", msg.text)
}

func TestDispatcherRejectsRemoteAddress(t *testing.T) {
	consumer := newRecordingConsumer()
	observer := &countingObserver{}
	d := NewDispatcher(NewChannel(newFakeConn(), defaultBackendAddr()), consumer)
	d.AttachObserver(observer)

	remote := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 20), Port: 0xA11C}
	d.handleDatagram(remote, protocol.EncodeMessageFrameAt("alice", "hi", false, time.Unix(1, 0)))
	d.handleDatagram(remote, protocol.EncodeKeyFrame("bob", "xyz", "", 5))

	assert.Empty(t, consumer.messages)
	assert.Empty(t, consumer.contacts)
	assert.Equal(t, 2, observer.dropped[DropReasonUntrustedAddress])
}

func TestDispatcherObserver(t *testing.T) {
	consumer := newRecordingConsumer()
	observer := &countingObserver{}
	d := NewDispatcher(NewChannel(newFakeConn(), defaultBackendAddr()), consumer)
	d.AttachObserver(observer)

	trusted := defaultBackendAddr()
	mismatch := protocol.EncodeMessageFrameAt("alice", "hi", false, time.Unix(1, 0))
	protocol.PutUint32(mismatch, 0, 1000)

	d.handleDatagram(trusted, mismatch)
	d.handleDatagram(trusted, make([]byte, 4))
	d.handleDatagram(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}, mismatch)

	assert.Equal(t, 3, observer.received)
	assert.Equal(t, 1, observer.decoded[protocol.CodeData])
	assert.Equal(t, 1, observer.warnings)
	assert.Equal(t, 1, observer.dropped[DropReasonTooShort])
	assert.Equal(t, 1, observer.dropped[DropReasonUntrustedPort])
	assert.Len(t, consumer.messages, 1)
}

func TestDispatcherHandshakeFailure(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errFake
	d := NewDispatcher(NewChannel(conn, defaultBackendAddr()), nil)

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrHandshakeFailed)
	assert.Equal(t, StateStarting, d.State())
}

func TestDispatcherReceiveFailure(t *testing.T) {
	conn := newFakeConn()
	conn.readErr = errFake
	d := NewDispatcher(NewChannel(conn, defaultBackendAddr()), nil)

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrReceiveFailed)
	assert.Equal(t, [][]byte{[]byte(protocol.Greeting)}, conn.frames())
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	conn := newFakeConn()
	d := NewDispatcher(NewChannel(conn, defaultBackendAddr()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type countingObserver struct {
	mu       sync.Mutex
	received int
	warnings int
	decoded  map[protocol.Code]int
	dropped  map[DropReason]int
	sent     map[SendKind][2]int // [failed, ok]
}

func (o *countingObserver) DatagramReceived(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.received++
}

func (o *countingObserver) FrameDropped(reason DropReason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.dropped == nil {
		o.dropped = make(map[DropReason]int)
	}
	o.dropped[reason]++
}

func (o *countingObserver) FrameWarning(error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings++
}

func (o *countingObserver) FrameDecoded(code protocol.Code) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.decoded == nil {
		o.decoded = make(map[protocol.Code]int)
	}
	o.decoded[code]++
}

func (o *countingObserver) FrameSent(kind SendKind, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sent == nil {
		o.sent = make(map[SendKind][2]int)
	}
	counts := o.sent[kind]
	if ok {
		counts[1]++
	} else {
		counts[0]++
	}
	o.sent[kind] = counts
}
