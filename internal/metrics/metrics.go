package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rinsuki-lab/alvr-dive/internal/api"
	"github.com/rinsuki-lab/alvr-dive/internal/app"
)

func Init() {
	var cfg struct {
		Mod struct {
			Enabled bool   `yaml:"enabled"`
			Path    string `yaml:"path"`
		} `yaml:"metrics"`
	}

	cfg.Mod.Enabled = true
	cfg.Mod.Path = "/metrics"

	app.LoadConfig(&cfg)

	if !cfg.Mod.Enabled {
		return
	}

	api.Handle(cfg.Mod.Path, promhttp.Handler())
}

// Default registered in prometheus.DefaultRegisterer on first use
var Default = New(prometheus.DefaultRegisterer)

type Metrics struct {
	// client side
	FramesReceived prometheus.Counter
	FramesDecoded  prometheus.Counter
	FramesDropped  prometheus.Counter
	DecodeErrors   prometheus.Counter
	IDRRequests    prometheus.Counter
	FrameSize      prometheus.Histogram
	SessionState   prometheus.Gauge
	PosesSent      prometheus.Counter

	// gateway side
	Clients       prometheus.Gauge
	FramesSent    prometheus.Counter
	PosesReceived prometheus.Counter
	DecodedAcks   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_frames_received_total",
			Help: "Total number of FrameReady messages received",
		}),
		FramesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_frames_decoded_total",
			Help: "Total number of frames produced by decoder",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_frames_dropped_total",
			Help: "Total number of decoded frames dropped on full event queue",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_decode_errors_total",
			Help: "Total number of decoder errors",
		}),
		IDRRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_idr_requests_total",
			Help: "Total number of keyframe requests sent to gateway",
		}),
		FrameSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dive_frame_size_bytes",
			Help:    "Size of received encoded frames",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		SessionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dive_session_state",
			Help: "Decode session state: 0 uninitialized, 1 awaiting keyframe, 2 streaming, 3 faulted",
		}),
		PosesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_poses_sent_total",
			Help: "Total number of pose records sent to gateway",
		}),

		Clients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dive_gateway_clients",
			Help: "Current number of connected clients",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_gateway_frames_sent_total",
			Help: "Total number of FrameReady messages sent",
		}),
		PosesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_gateway_poses_received_total",
			Help: "Total number of pose records received",
		}),
		DecodedAcks: factory.NewCounter(prometheus.CounterOpts{
			Name: "dive_gateway_decoded_total",
			Help: "Total number of decoded acknowledgements received",
		}),
	}
}
