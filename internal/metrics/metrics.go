// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vrpsolver/vrpsolver/pkg/model"
)

const namespace = "vrpsolver"

// Metrics 求解指标集合，使用独立注册表
type Metrics struct {
	Registry *prometheus.Registry

	SolvesTotal    *prometheus.CounterVec
	SolveDuration  *prometheus.HistogramVec
	Objective      *prometheus.GaugeVec
	Iterations     *prometheus.HistogramVec
	AcceptedMoves  *prometheus.CounterVec
	BudgetExceeded *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
}

// New 创建并注册指标
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "solves_total", Help: "求解次数"},
			[]string{"variant", "status", "stop_reason"},
		),
		SolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_duration_seconds",
				Help:      "求解耗时",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"variant"},
		),
		Objective: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "last_objective", Help: "最近一次求解的目标值"},
			[]string{"variant"},
		),
		Iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_iterations",
				Help:      "改进阶段迭代次数",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"variant"},
		),
		AcceptedMoves: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "accepted_moves_total", Help: "被接受的邻域移动数"},
			[]string{"variant"},
		),
		BudgetExceeded: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "budget_exceeded_total", Help: "时间预算耗尽次数"},
			[]string{"variant"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "cache_lookups_total", Help: "结果缓存查询"},
			[]string{"result"},
		),
	}

	m.Registry.MustRegister(
		m.SolvesTotal,
		m.SolveDuration,
		m.Objective,
		m.Iterations,
		m.AcceptedMoves,
		m.BudgetExceeded,
		m.CacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordSolve 记录一次求解
func (m *Metrics) RecordSolve(variant model.Variant, status model.SolveStatus, duration time.Duration, stats *model.SearchStatistics) {
	v := string(variant)
	reason := ""
	if stats != nil {
		reason = string(stats.StopReason)
	}
	m.SolvesTotal.WithLabelValues(v, string(status), reason).Inc()
	m.SolveDuration.WithLabelValues(v).Observe(duration.Seconds())

	if stats == nil {
		return
	}
	m.Iterations.WithLabelValues(v).Observe(float64(stats.Iterations))
	m.AcceptedMoves.WithLabelValues(v).Add(float64(stats.AcceptedMoves))
	if stats.BudgetExhausted {
		m.BudgetExceeded.WithLabelValues(v).Inc()
	}
}

// SetObjective 记录目标值，无可行解不记录
func (m *Metrics) SetObjective(variant model.Variant, res *model.SolutionResult) {
	if res == nil || !res.Feasible {
		return
	}
	m.Objective.WithLabelValues(string(variant)).Set(res.Objective)
}

// RecordCacheLookup 记录缓存命中情况
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
