package bus

import "github.com/dsengine/render/internal/core/message"

// Bus is a double-buffered message bus. Streams published during frame N are
// readable in frame N+1. Swap is called once at frame start by the Runner.
type Bus struct {
	front *message.Stream
	back  *message.Stream
}

func New() *Bus {
	return &Bus{
		front: message.NewStream(),
		back:  message.NewStream(),
	}
}

// Publish queues a system's outgoing stream into the back buffer. Order
// between publishers is call order.
func (b *Bus) Publish(s *message.Stream) {
	b.back.Concat(s)
}

// Swap rotates back to front and clears the new back buffer.
func (b *Bus) Swap() {
	b.front, b.back = b.back, b.front
	b.back.Reset()
}

// Pending returns the front buffer: every message published last frame.
func (b *Bus) Pending() *message.Stream {
	return b.front
}

// Reset drops everything in flight.
func (b *Bus) Reset() {
	b.front.Reset()
	b.back.Reset()
}
