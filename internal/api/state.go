package api

import (
	"sync"

	"github.com/smazurov/framebridge/internal/api/models"
	"github.com/smazurov/framebridge/internal/events"
)

// state mirrors the pipeline from bus events so handlers never touch the
// producer or session directly.
type state struct {
	mu      sync.RWMutex
	channel *models.ChannelState
	device  *models.DeviceState
}

// subscribe attaches the state to bus and returns the combined unsubscribe.
func (st *state) subscribe(bus *events.Bus) func() {
	if bus == nil {
		return func() {}
	}
	unsubs := []func(){
		bus.Subscribe(func(e events.ChannelCreatedEvent) {
			st.setChannel(&models.ChannelState{
				Name: e.Name, Path: e.Path, Width: e.Width, Height: e.Height,
				Role: "producer", Active: true, Since: e.Timestamp,
			})
		}),
		bus.Subscribe(func(e events.ChannelAttachedEvent) {
			st.setChannel(&models.ChannelState{
				Name: e.Name, Width: e.Width, Height: e.Height,
				Role: "consumer", Active: true, Since: e.Timestamp,
			})
		}),
		bus.Subscribe(func(e events.ChannelDestroyedEvent) {
			st.mu.Lock()
			defer st.mu.Unlock()
			if st.channel == nil || st.channel.Name != e.Name {
				return
			}
			ch := *st.channel
			closed := e.Timestamp
			ch.Active = false
			ch.Published = e.Published
			ch.Closed = &closed
			st.channel = &ch
		}),
		bus.Subscribe(func(e events.DeviceOpenedEvent) {
			st.mu.Lock()
			st.device = &models.DeviceState{
				Source: e.Source, Path: e.Path, Width: e.Width, Height: e.Height,
				OpenedAt: e.Timestamp,
			}
			st.mu.Unlock()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (st *state) setChannel(ch *models.ChannelState) {
	st.mu.Lock()
	st.channel = ch
	st.mu.Unlock()
}

// snapshot returns copies so callers may serialize without holding the lock.
func (st *state) snapshot() (*models.ChannelState, *models.DeviceState) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var ch *models.ChannelState
	if st.channel != nil {
		c := *st.channel
		ch = &c
	}
	var dev *models.DeviceState
	if st.device != nil {
		d := *st.device
		dev = &d
	}
	return ch, dev
}
