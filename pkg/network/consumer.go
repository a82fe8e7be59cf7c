package network

// Consumer receives decoded events from the dispatch loop.
//
// Methods are called synchronously on the dispatch goroutine; implementations
// must return quickly.
type Consumer interface {
	MessageReceived(peer string, timestampMillis int64, text string)
	ContactCreated(peer string)
}

// Consumers fans every event out to each consumer in order
type Consumers []Consumer

// MessageReceived implements Consumer
func (cs Consumers) MessageReceived(peer string, timestampMillis int64, text string) {
	for _, c := range cs {
		c.MessageReceived(peer, timestampMillis, text)
	}
}

// ContactCreated implements Consumer
func (cs Consumers) ContactCreated(peer string) {
	for _, c := range cs {
		c.ContactCreated(peer)
	}
}

// ConsumerFuncs adapts plain functions to Consumer. Nil fields are skipped.
type ConsumerFuncs struct {
	OnMessageReceived func(peer string, timestampMillis int64, text string)
	OnContactCreated  func(peer string)
}

// MessageReceived implements Consumer
func (f ConsumerFuncs) MessageReceived(peer string, timestampMillis int64, text string) {
	if f.OnMessageReceived != nil {
		f.OnMessageReceived(peer, timestampMillis, text)
	}
}

// ContactCreated implements Consumer
func (f ConsumerFuncs) ContactCreated(peer string) {
	if f.OnContactCreated != nil {
		f.OnContactCreated(peer)
	}
}
