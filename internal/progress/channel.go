package progress

import "sync"

// ChannelSubscriber buffers events on a channel for a single reader. When the
// buffer is full it refuses delivery and closes Dropped.
type ChannelSubscriber struct {
	events  chan Event
	dropped chan struct{}
	once    sync.Once
}

// NewChannelSubscriber creates a subscriber holding up to buffer events.
func NewChannelSubscriber(buffer int) *ChannelSubscriber {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSubscriber{
		events:  make(chan Event, buffer),
		dropped: make(chan struct{}),
	}
}

func (c *ChannelSubscriber) Deliver(evt Event) bool {
	select {
	case <-c.dropped:
		return false
	default:
	}
	select {
	case c.events <- evt:
		return true
	default:
		c.once.Do(func() { close(c.dropped) })
		return false
	}
}

// Events is the stream of accepted events.
func (c *ChannelSubscriber) Events() <-chan Event {
	return c.events
}

// Dropped is closed once the subscriber has overflowed.
func (c *ChannelSubscriber) Dropped() <-chan struct{} {
	return c.dropped
}
