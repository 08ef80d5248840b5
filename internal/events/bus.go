package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers ev to every subscriber of its concrete type.
// A nil bus drops the event.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case ChannelCreatedEvent:
		event.Publish(b.dispatcher, e)
	case ChannelDestroyedEvent:
		event.Publish(b.dispatcher, e)
	case ChannelAttachedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceOpenedEvent:
		event.Publish(b.dispatcher, e)
	case PauseToggledEvent:
		event.Publish(b.dispatcher, e)
	case RecordingToggledEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler, whose parameter type selects the events it
// receives. Unknown handler types are ignored. The returned function unsubscribes.
//
//	unsub := bus.Subscribe(func(e ChannelCreatedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ChannelCreatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChannelDestroyedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChannelAttachedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceOpenedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PauseToggledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RecordingToggledEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

