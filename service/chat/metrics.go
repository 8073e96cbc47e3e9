package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	OnlineConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "linkchat_online_conns",
		Help: "Current online websocket connections.",
	})

	WSPushOK = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkchat_ws_push_ok_total",
		Help: "Total ws frames queued successfully.",
	})
	WSPushBackpressure = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkchat_ws_backpressure_total",
		Help: "Total times an outbound queue was full and the frame was dropped.",
	})
	WSPushOffline = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkchat_ws_offline_total",
		Help: "Total deliveries where the target had no live connection.",
	})
)

var metricsRegistered bool

func RegisterMetrics() {
	if metricsRegistered {
		return
	}
	metricsRegistered = true
	prometheus.MustRegister(
		OnlineConns,
		WSPushOK, WSPushBackpressure, WSPushOffline,
	)
}
