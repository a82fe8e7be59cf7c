package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

var (
	ErrHandshakeFailed = errors.New("unable to send initial packet")
	ErrReceiveFailed   = errors.New("unable to receive messages")
)

// State of the dispatch loop
type State int32

const (
	StateStarting State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "starting"
}

// Dispatcher runs the receive loop for one Channel and exposes the outbound
// chat and key exchange operations.
type Dispatcher struct {
	channel  *Channel
	consumer Consumer
	observer Observer
	state    atomic.Int32
}

// NewDispatcher creates a dispatcher delivering events to consumer
func NewDispatcher(channel *Channel, consumer Consumer) *Dispatcher {
	if consumer == nil {
		consumer = Consumers{}
	}
	return &Dispatcher{
		channel:  channel,
		consumer: consumer,
		observer: NopObserver{},
	}
}

// AttachObserver installs metrics hooks. Call before Run.
func (d *Dispatcher) AttachObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	d.observer = o
}

// Channel returns the channel the dispatcher owns
func (d *Dispatcher) Channel() *Channel {
	return d.channel
}

// State reports whether the loop has completed its greeting
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Run greets the daemon and then receives until ctx is cancelled.
//
// A failed greeting or a failed receive leaves the bridge without a usable
// transport; both are returned as errors that callers treat as fatal.
// Cancelling ctx closes the channel and Run returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Printf("Dispatcher starting, backend %s", d.channel.BackendMultiaddr())

	if err := d.sendGreeting(); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	stop := context.AfterFunc(ctx, func() {
		d.channel.Close()
	})
	defer stop()

	d.state.Store(int32(StateRunning))
	log.Println("Dispatcher running")

	return d.receiveLoop(ctx)
}

func (d *Dispatcher) sendGreeting() error {
	err := d.channel.Send([]byte(protocol.Greeting))
	d.observer.FrameSent(SendKindGreeting, err == nil)
	return err
}
