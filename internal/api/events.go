package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/framebridge/internal/events"
)

// eventTypes maps SSE event names to payload types.
var eventTypes = map[string]any{
	"channel-created":   events.ChannelCreatedEvent{},
	"channel-destroyed": events.ChannelDestroyedEvent{},
	"channel-attached":  events.ChannelAttachedEvent{},
	"device-opened":     events.DeviceOpenedEvent{},
	"pause-toggled":     events.PauseToggledEvent{},
	"recording-toggled": events.RecordingToggledEvent{},
}

func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Event stream",
		Description: "Pipeline lifecycle events via Server-Sent Events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		bus := s.options.Bus
		if bus == nil {
			<-ctx.Done()
			return
		}

		eventCh := make(chan any, 32)
		forward := func(ev any) {
			select {
			case eventCh <- ev:
			default:
				// A stalled client loses events rather than blocking the bus.
			}
		}
		unsubs := []func(){
			bus.Subscribe(func(e events.ChannelCreatedEvent) { forward(e) }),
			bus.Subscribe(func(e events.ChannelDestroyedEvent) { forward(e) }),
			bus.Subscribe(func(e events.ChannelAttachedEvent) { forward(e) }),
			bus.Subscribe(func(e events.DeviceOpenedEvent) { forward(e) }),
			bus.Subscribe(func(e events.PauseToggledEvent) { forward(e) }),
			bus.Subscribe(func(e events.RecordingToggledEvent) { forward(e) }),
		}
		defer func() {
			for _, unsub := range unsubs {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
