package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CapturesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attend",
		Name:      "captures_processed_total",
		Help:      "Total number of kiosk captures processed",
	}, []string{"kiosk"})

	FacesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attend",
		Name:      "faces_matched_total",
		Help:      "Total number of captures matched to an enrolled employee",
	}, []string{"kiosk"})

	CapturesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attend",
		Name:      "captures_rejected_total",
		Help:      "Total number of rejected captures by reason",
	}, []string{"kiosk", "reason"})

	AttendanceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attend",
		Name:      "attendance_events_total",
		Help:      "Total number of recorded attendance events",
	}, []string{"kiosk", "kind"})

	RecognitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attend",
		Name:      "recognition_duration_seconds",
		Help:      "Duration of recognition pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "attend",
		Name:      "queue_depth",
		Help:      "Number of pending capture tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attend",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "attend",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
