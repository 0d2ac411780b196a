package engine

import (
	"time"

	"github.com/vrpsolver/vrpsolver/pkg/logger"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/dimension"
	"github.com/vrpsolver/vrpsolver/pkg/routing/optimizer"
)

// 默认时间预算
const (
	DefaultCVRPBudget  = 10 * time.Second
	DefaultTWVRPBudget = 1 * time.Second
)

// DefaultBudget 返回问题类型的默认时间预算
func DefaultBudget(v model.Variant) time.Duration {
	if v == model.VariantTimeWindowed {
		return DefaultTWVRPBudget
	}
	return DefaultCVRPBudget
}

// Option 引擎选项
type Option func(*Engine)

// WithStallLimit 连续无改进迭代上限，<= 0 不限制
func WithStallLimit(n int) Option {
	return func(e *Engine) { e.stallLimit = n }
}

// WithMaxIterations 改进阶段最大迭代次数，<= 0 不限制
func WithMaxIterations(n int) Option {
	return func(e *Engine) { e.maxIterations = n }
}

// WithLambda 引导局部搜索的惩罚系数，0 表示只做局部搜索
func WithLambda(coefficient float64) Option {
	return func(e *Engine) {
		if coefficient >= 0 {
			e.lambda = coefficient
		}
	}
}

// WithWorkers 邻域并行评估协程数
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// WithTracer 设置追踪钩子
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithTimeSettings 设置时间维度参数
func WithTimeSettings(s dimension.TimeSettings) Option {
	return func(e *Engine) { e.time = s.Normalize() }
}

// WithLogger 设置求解日志器
func WithLogger(l *logger.SolverLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func defaultEngine() *Engine {
	return &Engine{
		stallLimit: optimizer.DefaultStallLimit,
		lambda:     optimizer.DefaultLambdaCoefficient,
		workers:    1,
		tracer:     NopTracer{},
		time:       dimension.DefaultTimeSettings(),
	}
}
