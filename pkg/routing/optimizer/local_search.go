// Package optimizer 提供路线改进算法（引导局部搜索）
package optimizer

import (
	"context"
	"time"

	"github.com/vrpsolver/vrpsolver/pkg/logger"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/route"
)

// improvementEpsilon 增广增量低于 -epsilon 才视为改进
const improvementEpsilon = 1e-6

// 默认参数
const (
	DefaultStallLimit        = 1000
	DefaultLambdaCoefficient = 0.1
)

// Config 优化配置
type Config struct {
	StallLimit        int       `json:"stall_limit"`        // 连续无改进迭代上限，<= 0 不限制
	MaxIterations     int       `json:"max_iterations"`     // 最大迭代次数，<= 0 不限制
	LambdaCoefficient float64   `json:"lambda_coefficient"` // λ = 系数 × 成本 / 弧数
	Workers           int       `json:"workers"`            // 并行评估协程数
	Deadline          time.Time `json:"-"`                  // 墙钟截止时间，零值不限制

	// OnMove 每次迭代结束时回调，用于追踪
	OnMove func(MoveEvent) `json:"-"`
}

// DefaultConfig 默认优化配置
func DefaultConfig() *Config {
	return &Config{
		StallLimit:        DefaultStallLimit,
		LambdaCoefficient: DefaultLambdaCoefficient,
		Workers:           1,
	}
}

// MoveEvent 每次迭代的搜索事件
type MoveEvent struct {
	Iteration int     `json:"iteration"`
	Kind      string  `json:"kind"` // 移动类型，惩罚迭代为 "penalize"
	Vehicles  [2]int  `json:"vehicles"`
	Delta     float64 `json:"delta"`
	Cost      int64   `json:"cost"`
	BestCost  int64   `json:"best_cost"`
	Improved  bool    `json:"improved"`
}

// Result 优化结果
type Result struct {
	Plan          *route.Plan
	Cost          int64
	InitialCost   int64
	Iterations    int
	AcceptedMoves int
	Improvements  int
	Penalizations int
	Lambda        float64
	StopReason    model.StopReason
	Duration      time.Duration
}

// GuidedLocalSearch 引导局部搜索
//
// 以增广成本 c + λ·p 做最优改进下降；到达局部最优时对效用 c/(1+p) 最大的弧加罚，
// λ 在第一次局部最优时按当前成本确定。始终保留真实成本最优的方案。
type GuidedLocalSearch struct {
	config    *Config
	evaluator *ParallelEvaluator
	logger    *logger.SolverLogger
}

// NewGuidedLocalSearch 创建引导局部搜索优化器
func NewGuidedLocalSearch(config *Config) *GuidedLocalSearch {
	if config == nil {
		config = DefaultConfig()
	}
	return &GuidedLocalSearch{
		config:    config,
		evaluator: NewParallelEvaluator(config.Workers),
		logger:    logger.NewSolverLogger(),
	}
}

// WithLogger 替换日志器
func (g *GuidedLocalSearch) WithLogger(l *logger.SolverLogger) *GuidedLocalSearch {
	g.logger = l
	return g
}

// Optimize 从可行的初始方案出发改进，取消或超时时返回当前最优方案
func (g *GuidedLocalSearch) Optimize(ctx context.Context, rc *route.Context, initial *route.Plan) (*Result, error) {
	start := time.Now()

	current := initial.Clone()
	cost := current.Cost(rc)
	result := &Result{
		Plan:        current.Clone(),
		Cost:        cost,
		InitialCost: cost,
	}

	penalties := newPenalties(rc.Matrix.Size())
	lambda := 0.0
	lambdaSet := false
	stall := 0

	augmented := func(from, to int) float64 {
		c := float64(rc.Arc(from, to))
		if lambda == 0 {
			return c
		}
		return c + lambda*float64(penalties.get(from, to))
	}

	for {
		result.Iterations++

		s := &scanner{rc: rc, plan: current, arc: augmented}
		move, found := g.evaluator.best(ctx, s, buildTasks(current), -improvementEpsilon)

		event := MoveEvent{Iteration: result.Iterations}
		if found {
			a, b := move.Apply(current.Routes)
			current.Routes[move.R1] = a
			if move.R2 != move.R1 {
				current.Routes[move.R2] = b
			}
			cost = current.Cost(rc)
			result.AcceptedMoves++

			event.Kind = move.Kind.String()
			event.Vehicles = [2]int{move.R1, move.R2}
			event.Delta = move.Delta
		} else {
			if ctx.Err() != nil {
				result.StopReason = model.StopCancelled
				break
			}
			if !lambdaSet {
				lambdaSet = true
				if arcs := current.ArcCount(); arcs > 0 {
					lambda = g.config.LambdaCoefficient * float64(cost) / float64(arcs)
				}
				result.Lambda = lambda
				g.logger.Base().Debug().
					Int("iteration", result.Iterations).
					Int64("cost", cost).
					Float64("lambda", lambda).
					Msg("到达首个局部最优")
			}
			if lambda <= 0 {
				result.StopReason = model.StopNoImprovement
				break
			}
			penalties.penalize(rc, current)
			result.Penalizations++
			event.Kind = "penalize"
		}

		if cost < result.Cost {
			result.Plan = current.Clone()
			result.Cost = cost
			result.Improvements++
			stall = 0
			event.Improved = true
		} else {
			stall++
		}

		event.Cost = cost
		event.BestCost = result.Cost
		if g.config.OnMove != nil {
			g.config.OnMove(event)
		}

		// 检查结束条件：与墙钟无关的条件优先
		if g.config.MaxIterations > 0 && result.Iterations >= g.config.MaxIterations {
			result.StopReason = model.StopIterationLimit
			break
		}
		if g.config.StallLimit > 0 && stall >= g.config.StallLimit {
			result.StopReason = model.StopStall
			break
		}
		if ctx.Err() != nil {
			result.StopReason = model.StopCancelled
			break
		}
		if !g.config.Deadline.IsZero() && !time.Now().Before(g.config.Deadline) {
			result.StopReason = model.StopBudget
			break
		}
	}

	result.Duration = time.Since(start)
	g.logger.Base().Debug().
		Int("iterations", result.Iterations).
		Int64("initial", result.InitialCost).
		Int64("best", result.Cost).
		Int("penalizations", result.Penalizations).
		Str("stop_reason", string(result.StopReason)).
		Msg("引导局部搜索完成")

	return result, nil
}

// penalties 弧惩罚计数
type penalties struct {
	n     int
	count []int32
}

func newPenalties(n int) *penalties {
	return &penalties{n: n, count: make([]int32, n*n)}
}

func (p *penalties) get(from, to int) int32 {
	return p.count[from*p.n+to]
}

// penalize 对当前方案中效用 c/(1+p) 最大的弧（并列时全部）加罚
func (p *penalties) penalize(rc *route.Context, plan *route.Plan) {
	maxUtility := -1.0
	var selected []int
	plan.ForEachArc(rc.Depot, func(_, from, to int) {
		idx := from*p.n + to
		utility := float64(rc.Arc(from, to)) / float64(1+p.count[idx])
		switch {
		case utility > maxUtility:
			maxUtility = utility
			selected = append(selected[:0], idx)
		case utility == maxUtility:
			selected = append(selected, idx)
		}
	})
	for _, idx := range selected {
		p.count[idx]++
	}
}
