package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"roastmarket_backend/ws"
)

type PrometheusMetrics struct {
	httpDuration           *prometheus.HistogramVec
	connections            *prometheus.GaugeVec
	broadcastTargets       *prometheus.CounterVec
	broadcastDelivered     *prometheus.CounterVec
	deliveryMisses         *prometheus.CounterVec
	evictions              *prometheus.CounterVec
	authFailures           prometheus.Counter
	notificationsCreated   *prometheus.CounterVec
	notificationsCleaned   prometheus.Counter
	trackingEventsAppended prometheus.Counter
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roastmarket_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route", "status"},
		),
		connections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "roastmarket_realtime_connections",
				Help: "Current number of realtime connections by state",
			},
			[]string{"state"},
		),
		broadcastTargets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roastmarket_realtime_broadcast_targets_total",
				Help: "Connections resolved as targets of a broadcast",
			},
			[]string{"frame"},
		),
		broadcastDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roastmarket_realtime_broadcast_delivered_total",
				Help: "Frames queued for delivery to a connection",
			},
			[]string{"frame"},
		),
		deliveryMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roastmarket_realtime_delivery_misses_total",
				Help: "Frames dropped because a connection queue was full or closed",
			},
			[]string{"frame"},
		),
		evictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roastmarket_realtime_evictions_total",
				Help: "Connections closed by the server",
			},
			[]string{"reason"},
		),
		authFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "roastmarket_realtime_auth_failures_total",
				Help: "Rejected authenticate frames",
			},
		),
		notificationsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roastmarket_notifications_created_total",
				Help: "Notifications persisted",
			},
			[]string{"type"},
		),
		notificationsCleaned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "roastmarket_notifications_cleaned_total",
				Help: "Old read notifications removed by the cleanup worker",
			},
		),
		trackingEventsAppended: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "roastmarket_tracking_events_appended_total",
				Help: "Tracking events appended to order logs",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) SetConnections(total, authenticated int) {
	p.connections.WithLabelValues("open").Set(float64(total))
	p.connections.WithLabelValues("authenticated").Set(float64(authenticated))
}

func (p *PrometheusMetrics) ObserveBroadcast(frame string, report ws.DeliveryReport) {
	p.broadcastTargets.WithLabelValues(frame).Add(float64(report.Targets))
	p.broadcastDelivered.WithLabelValues(frame).Add(float64(report.Delivered))
	p.deliveryMisses.WithLabelValues(frame).Add(float64(report.Missed))
}

func (p *PrometheusMetrics) ObserveEviction(reason string) {
	p.evictions.WithLabelValues(reason).Inc()
}

func (p *PrometheusMetrics) ObserveAuthFailure() {
	p.authFailures.Inc()
}

func (p *PrometheusMetrics) ObserveNotificationCreated(notificationType string) {
	p.notificationsCreated.WithLabelValues(notificationType).Inc()
}

func (p *PrometheusMetrics) ObserveNotificationsCleaned(count int64) {
	p.notificationsCleaned.Add(float64(count))
}

func (p *PrometheusMetrics) ObserveTrackingEventAppended() {
	p.trackingEventsAppended.Inc()
}

var _ ws.Metrics = (*PrometheusMetrics)(nil)
