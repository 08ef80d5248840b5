// Package metrics provides Prometheus metrics for the frame pipeline.
//
// Every metric is registered on the default registry through promauto. A plain
// counter snapshot is kept alongside for the status API.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "framebridge"

var (
	producerPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "producer",
		Name:      "frames_published_total",
		Help:      "Frames written into the frame channel",
	})

	producerOverwritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "producer",
		Name:      "frames_overwritten_total",
		Help:      "Published frames replaced before any consumer read them",
	})

	producerEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "producer",
		Name:      "empty_frames_total",
		Help:      "Empty frames discarded from live devices",
	})

	consumerRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "frames_read_total",
		Help:      "Frames copied out of the frame channel",
	})

	consumerWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "wait_seconds",
		Help:      "Time a consumer waited for the next frame",
		Buckets:   []float64{.001, .005, .01, .02, .033, .05, .1, .25, .5, 1, 5},
	})

	consumerAttachRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "attach_retries_total",
		Help:      "Attach attempts made before the frame channel existed",
	})

	trackingFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracking",
		Name:      "frames_total",
		Help:      "Frames processed by the tracking session",
	})

	recordingFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recording",
		Name:      "frames_total",
		Help:      "Frames written to the recording directory",
	})
)

// Snapshot holds current counter values.
type Snapshot struct {
	FramesPublished   uint64  `json:"frames_published"`
	FramesOverwritten uint64  `json:"frames_overwritten"`
	EmptyFrames       uint64  `json:"empty_frames"`
	FramesRead        uint64  `json:"frames_read"`
	AttachRetries     uint64  `json:"attach_retries"`
	TrackingFrames    uint64  `json:"tracking_frames"`
	RecordingFrames   uint64  `json:"recording_frames"`
	LastWaitSeconds   float64 `json:"last_wait_seconds"`
}

// Local mirror for the status API.
var (
	published     atomic.Uint64
	overwritten   atomic.Uint64
	empty         atomic.Uint64
	read          atomic.Uint64
	attachRetries atomic.Uint64
	tracked       atomic.Uint64
	recorded      atomic.Uint64
	lastWaitNanos atomic.Int64
)

// IncPublished counts one frame written by the producer.
func IncPublished() {
	producerPublished.Inc()
	published.Add(1)
}

// IncOverwritten counts one frame dropped because no consumer picked it up.
func IncOverwritten() {
	producerOverwritten.Inc()
	overwritten.Add(1)
}

// IncEmptyFrames counts one empty frame discarded from a live device.
func IncEmptyFrames() {
	producerEmpty.Inc()
	empty.Add(1)
}

// ObserveConsumerRead records one frame read from the channel and how long the
// consumer blocked for it.
func ObserveConsumerRead(wait time.Duration) {
	consumerRead.Inc()
	consumerWait.Observe(wait.Seconds())
	read.Add(1)
	lastWaitNanos.Store(int64(wait))
}

// IncAttachRetries counts one failed attach attempt.
func IncAttachRetries() {
	consumerAttachRetries.Inc()
	attachRetries.Add(1)
}

// IncTrackingFrames counts one frame handled by the tracking session.
func IncTrackingFrames() {
	trackingFrames.Inc()
	tracked.Add(1)
}

// IncRecordingFrames counts one frame persisted by the recorder.
func IncRecordingFrames() {
	recordingFrames.Inc()
	recorded.Add(1)
}

// Current returns the counters accumulated by this process.
func Current() Snapshot {
	return Snapshot{
		FramesPublished:   published.Load(),
		FramesOverwritten: overwritten.Load(),
		EmptyFrames:       empty.Load(),
		FramesRead:        read.Load(),
		AttachRetries:     attachRetries.Load(),
		TrackingFrames:    tracked.Load(),
		RecordingFrames:   recorded.Load(),
		LastWaitSeconds:   time.Duration(lastWaitNanos.Load()).Seconds(),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
// It serves every promauto-registered metric.
func Handler() http.Handler {
	return promhttp.Handler()
}
