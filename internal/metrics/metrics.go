package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cycles_total", Help: "Trading cycles run, by terminal status"},
		[]string{"status"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals generated, by direction"},
		[]string{"direction"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted, by side and mode"},
		[]string{"side", "mode"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_total", Help: "Closed trades, by outcome"},
		[]string{"outcome"},
	)
	CashBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "cash_balance_usd", Help: "Current paper cash balance"},
	)
	SignalConfidence = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "signal_confidence", Help: "Confidence of the latest signal"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, SignalsTotal, OrdersTotal, TradesTotal, CashBalance, SignalConfidence)
}

// Serve exposes /metrics on the given address in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
