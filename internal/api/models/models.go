// Package models holds the request and response bodies of the status API.
package models

import (
	"time"

	"github.com/smazurov/framebridge/internal/devices"
	"github.com/smazurov/framebridge/internal/logging"
	"github.com/smazurov/framebridge/internal/metrics"
	"github.com/smazurov/framebridge/internal/tracking"
	"github.com/smazurov/framebridge/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionResponse struct {
	Body version.Info
}

// ChannelState describes the frame channel as last reported on the event bus.
type ChannelState struct {
	Name      string     `json:"name" example:"frame" doc:"Channel name"`
	Path      string     `json:"path,omitempty" example:"/dev/shm/frame" doc:"Backing file of the region"`
	Width     int        `json:"width" example:"640" doc:"Frame width in pixels"`
	Height    int        `json:"height" example:"480" doc:"Frame height in pixels"`
	Role      string     `json:"role" example:"producer" enum:"producer,consumer" doc:"How this process uses the channel"`
	Active    bool       `json:"active" doc:"Whether the channel is currently mapped"`
	Published uint64     `json:"published,omitempty" doc:"Frames published before the channel was destroyed"`
	Since     time.Time  `json:"since" doc:"When the channel was created or attached"`
	Closed    *time.Time `json:"closed,omitempty" doc:"When the channel was destroyed"`
}

// DeviceState describes the opened video source.
type DeviceState struct {
	Source   string    `json:"source" example:"camera" doc:"Video backend"`
	Path     string    `json:"path" example:"/dev/c920-0" doc:"Device or file path"`
	Width    int       `json:"width" example:"640" doc:"Output width"`
	Height   int       `json:"height" example:"480" doc:"Output height"`
	OpenedAt time.Time `json:"opened_at" doc:"When the source was opened"`
}

type StatusData struct {
	Uptime   string           `json:"uptime" example:"1h2m3s" doc:"Time since the server started"`
	Metrics  metrics.Snapshot `json:"metrics" doc:"Frame counters of this process"`
	Channel  *ChannelState    `json:"channel,omitempty" doc:"Frame channel state"`
	Device   *DeviceState     `json:"device,omitempty" doc:"Opened video source"`
	Tracking *tracking.Status `json:"tracking,omitempty" doc:"Tracking session state"`
}

type StatusResponse struct {
	Body StatusData
}

type LogsInput struct {
	Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum number of entries"`
	Module string `query:"module" example:"producer" doc:"Only entries from this module"`
}

type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Log entries, oldest first"`
	Count   int                `json:"count" example:"42" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

type DevicesData struct {
	Devices []devices.Device `json:"devices" doc:"Devices matching the discovery pattern"`
	Default string           `json:"default,omitempty" example:"/dev/c920-0" doc:"Device capture would use"`
	Pattern string           `json:"pattern" example:"/dev/c920-*" doc:"Discovery glob"`
}

type DevicesResponse struct {
	Body DevicesData
}
