package engine

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/vrpsolver/vrpsolver/pkg/routing/optimizer"
	"golang.org/x/time/rate"
)

// Phase 引擎阶段
type Phase string

const (
	PhaseConstruction Phase = "CONSTRUCTION"
	PhaseImproving    Phase = "IMPROVING"
	PhaseDone         Phase = "DONE"
	PhaseInfeasible   Phase = "INFEASIBLE"
)

// PhaseEvent 阶段切换事件
type PhaseEvent struct {
	From      Phase         `json:"from"`
	To        Phase         `json:"to"`
	Objective int64         `json:"objective"` // 放大后的当前成本
	Elapsed   time.Duration `json:"elapsed"`
}

// MoveEvent 搜索迭代事件
type MoveEvent = optimizer.MoveEvent

// Tracer 求解过程追踪钩子
type Tracer interface {
	OnPhase(PhaseEvent)
	OnMove(MoveEvent)
}

// NopTracer 不做任何事
type NopTracer struct{}

// OnPhase 忽略阶段事件
func (NopTracer) OnPhase(PhaseEvent) {}

// OnMove 忽略迭代事件
func (NopTracer) OnMove(MoveEvent) {}

// LogTracer 将追踪事件写入日志，迭代事件按速率限流
type LogTracer struct {
	logger  zerolog.Logger
	limiter *rate.Limiter
}

// NewLogTracer 创建日志追踪器，movesPerSecond <= 0 时不输出迭代事件（改进事件除外）
func NewLogTracer(l zerolog.Logger, movesPerSecond float64) *LogTracer {
	limit := rate.Limit(movesPerSecond)
	burst := int(movesPerSecond)
	if burst < 1 {
		burst = 1
	}
	if movesPerSecond <= 0 {
		limit, burst = 0, 0
	}
	return &LogTracer{
		logger:  l.With().Str("component", "tracer").Logger(),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// OnPhase 记录阶段切换
func (t *LogTracer) OnPhase(e PhaseEvent) {
	t.logger.Info().
		Str("from", string(e.From)).
		Str("to", string(e.To)).
		Int64("objective", e.Objective).
		Dur("elapsed", e.Elapsed).
		Msg("阶段切换")
}

// OnMove 记录迭代；发现更优解时总是记录
func (t *LogTracer) OnMove(e MoveEvent) {
	if !e.Improved && !t.limiter.Allow() {
		return
	}
	t.logger.Debug().
		Int("iteration", e.Iteration).
		Str("kind", e.Kind).
		Ints("vehicles", e.Vehicles[:]).
		Float64("delta", e.Delta).
		Int64("cost", e.Cost).
		Int64("best", e.BestCost).
		Bool("improved", e.Improved).
		Msg("搜索迭代")
}
