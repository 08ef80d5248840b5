package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeChannelCreated uint32 = iota + 1
	TypeChannelDestroyed
	TypeChannelAttached
	TypeDeviceOpened
	TypePauseToggled
	TypeRecordingToggled
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ChannelCreatedEvent is published once the producer has created the frame channel.
type ChannelCreatedEvent struct {
	Name      string    `json:"name" example:"frame" doc:"Channel name"`
	Path      string    `json:"path" example:"/dev/shm/frame" doc:"Backing file of the region"`
	Width     int       `json:"width" example:"640" doc:"Frame width in pixels"`
	Height    int       `json:"height" example:"480" doc:"Frame height in pixels"`
	Timestamp time.Time `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ChannelCreatedEvent.
func (e ChannelCreatedEvent) Type() uint32 { return TypeChannelCreated }

// ChannelDestroyedEvent is published when the producer removes the channel on exit.
type ChannelDestroyedEvent struct {
	Name      string    `json:"name" example:"frame" doc:"Channel name"`
	Published uint64    `json:"published" doc:"Frames published over the channel lifetime"`
	Timestamp time.Time `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ChannelDestroyedEvent.
func (e ChannelDestroyedEvent) Type() uint32 { return TypeChannelDestroyed }

// ChannelAttachedEvent is published when a consumer attaches to the channel.
type ChannelAttachedEvent struct {
	Name      string    `json:"name" example:"frame" doc:"Channel name"`
	Width     int       `json:"width" example:"640" doc:"Frame width in pixels"`
	Height    int       `json:"height" example:"480" doc:"Frame height in pixels"`
	Timestamp time.Time `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ChannelAttachedEvent.
func (e ChannelAttachedEvent) Type() uint32 { return TypeChannelAttached }

// DeviceOpenedEvent is published when a video source is ready.
type DeviceOpenedEvent struct {
	Source    string    `json:"source" example:"camera" doc:"Video source kind"`
	Path      string    `json:"path" example:"/dev/c920-0" doc:"Device, file or channel path"`
	Width     int       `json:"width" example:"640" doc:"Output width in pixels"`
	Height    int       `json:"height" example:"480" doc:"Output height in pixels"`
	Timestamp time.Time `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceOpenedEvent.
func (e DeviceOpenedEvent) Type() uint32 { return TypeDeviceOpened }

// PauseToggledEvent reports the video pause flag after a toggle.
type PauseToggledEvent struct {
	Paused    bool      `json:"paused" doc:"Whether playback is paused"`
	Timestamp time.Time `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for PauseToggledEvent.
func (e PauseToggledEvent) Type() uint32 { return TypePauseToggled }

// RecordingToggledEvent reports the recorder state after a toggle.
type RecordingToggledEvent struct {
	Recording bool      `json:"recording" doc:"Whether frames are being written"`
	Dir       string    `json:"dir" example:"/var/lib/framebridge/cat" doc:"Recording directory"`
	Frames    int       `json:"frames" doc:"Frames written so far"`
	Timestamp time.Time `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingToggledEvent.
func (e RecordingToggledEvent) Type() uint32 { return TypeRecordingToggled }
