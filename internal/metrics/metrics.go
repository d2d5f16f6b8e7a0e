package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 周期结果标签。
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultTripped  = "tripped"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
	ResultAccepted = "accepted"
)

// Metrics 持有做市循环的全部指标，使用独立的 Registry。
type Metrics struct {
	registry *prometheus.Registry

	Cycles      *prometheus.CounterVec
	Orders      *prometheus.CounterVec
	Cancels     *prometheus.CounterVec
	Volatility  prometheus.Gauge
	CircuitOpen prometheus.Gauge
}

// New 创建并注册指标。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "makerbot_cycles_total", Help: "Completed order cycles by result"},
			[]string{"result"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "makerbot_orders_total", Help: "Order placements by side and result"},
			[]string{"side", "result"},
		),
		Cancels: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "makerbot_cancels_total", Help: "Cancel requests by result"},
			[]string{"result"},
		),
		Volatility: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "makerbot_volatility_signal", Help: "Mean absolute quote change over the gap window"},
		),
		CircuitOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "makerbot_circuit_open", Help: "1 when the last cycle skipped placement because of volatility"},
		),
	}

	m.registry.MustRegister(
		m.Cycles, m.Orders, m.Cancels, m.Volatility, m.CircuitOpen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 返回底层注册表。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CycleDone 记录周期结果。nil 接收者上的记录方法均为空操作。
func (m *Metrics) CycleDone(result string) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(result).Inc()
}

// OrderPlaced 记录下单结果。
func (m *Metrics) OrderPlaced(side string, ok bool) {
	if m == nil {
		return
	}
	result := ResultAccepted
	if !ok {
		result = ResultFailed
	}
	m.Orders.WithLabelValues(side, result).Inc()
}

// CancelDone 记录撤单结果。
func (m *Metrics) CancelDone(ok bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	m.Cancels.WithLabelValues(result).Inc()
}

// SetVolatility 更新波动指标与熔断状态。
func (m *Metrics) SetVolatility(signal float64, open bool) {
	if m == nil {
		return
	}
	m.Volatility.Set(signal)
	if open {
		m.CircuitOpen.Set(1)
	} else {
		m.CircuitOpen.Set(0)
	}
}
