// Package metrics 封装了基于 Prometheus 的独立指标注册表，以及线段树工作负载使用的标准指标。
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 封装了基于 Prometheus 的指标采集注册表及预定义的标准监控指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	BuildInfo *prometheus.GaugeVec

	TreeOperationsTotal   *prometheus.CounterVec   // 线段树操作总量 (维度: workload, op, status)
	TreeOperationDuration *prometheus.HistogramVec // 线段树操作耗时分布 (维度: workload, op)
	VerifyMismatchesTotal *prometheus.CounterVec   // 与朴素折叠结果不一致的查询数 (维度: workload)
	TreeSize              *prometheus.GaugeVec     // 当前工作负载的逻辑长度 (维度: workload)
}

// NewMetrics 初始化并返回一个新的指标采集器。
// 它会自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.TreeOperationsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "tree_operations_total",
		Help: "Total number of segment tree operations",
	}, []string{"workload", "op", "status"})

	// 单次操作在微秒以内，默认桶过粗。
	m.TreeOperationDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tree_operation_duration_seconds",
		Help:    "Segment tree operation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(1e-8, 4, 12),
	}, []string{"workload", "op"})

	m.VerifyMismatchesTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "tree_verify_mismatches_total",
		Help: "Number of query answers that disagreed with the reference fold",
	}, []string{"workload"})

	m.TreeSize = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tree_logical_size",
		Help: "Logical size of the segment tree driven by a workload",
	}, []string{"workload"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// ObserveOperation 记录一次线段树操作的结果与耗时。
func (m *Metrics) ObserveOperation(workload, op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.TreeOperationsTotal.WithLabelValues(workload, op, status).Inc()
	m.TreeOperationDuration.WithLabelValues(workload, op).Observe(elapsed.Seconds())
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHttp 在指定端口启动一个独立的 HTTP 服务器用于暴露指标数据。
// 返回一个清理函数用于优雅关闭该服务器。
func (m *Metrics) ExposeHttp(port, path string) func() {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
