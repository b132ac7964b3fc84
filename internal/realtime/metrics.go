package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	rtConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "talkative_rt_connections",
			Help: "Current number of admitted realtime connections.",
		},
	)
	rtRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "talkative_rt_rooms",
			Help: "Current number of non-empty rooms.",
		},
	)
	rtEventsIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkative_rt_events_received_total",
			Help: "Total inbound events by event name.",
		},
		[]string{"event"},
	)
	rtDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talkative_rt_events_delivered_total",
			Help: "Total events queued to target connections.",
		},
	)
	rtDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talkative_rt_events_dropped_total",
			Help: "Total events dropped on closed or backlogged connections.",
		},
	)
	rtTypingSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talkative_rt_typing_suppressed_total",
			Help: "Total duplicate typing signals not relayed.",
		},
	)
	rtMalformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talkative_rt_malformed_events_total",
			Help: "Total events dropped for missing required payload fields.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		rtConnections,
		rtRooms,
		rtEventsIn,
		rtDelivered,
		rtDropped,
		rtTypingSuppressed,
		rtMalformed,
	)
}

func incConnections() {
	rtConnections.Inc()
}

func decConnections() {
	rtConnections.Dec()
}

func setRooms(count int) {
	rtRooms.Set(float64(count))
}

func countEventIn(name string) {
	rtEventsIn.WithLabelValues(name).Inc()
}

func countDelivered() {
	rtDelivered.Inc()
}

func countDropped() {
	rtDropped.Inc()
}

func countTypingSuppressed() {
	rtTypingSuppressed.Inc()
}

func countMalformed() {
	rtMalformed.Inc()
}
