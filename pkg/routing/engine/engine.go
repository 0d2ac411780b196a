// Package engine 提供车辆路径问题的求解入口
//
// 求解流程：校验问题 → 构建成本矩阵 → 按问题类型挂载约束维度 →
// 最便宜插入构造初始解 → 引导局部搜索改进 → 独立复核并提取结果。
// 两类问题共用同一套引擎，差异只体现在维度集合、插入顺序与目标值换算。
package engine

import (
	"context"
	"time"

	"github.com/vrpsolver/vrpsolver/pkg/errors"
	"github.com/vrpsolver/vrpsolver/pkg/logger"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/dimension"
	"github.com/vrpsolver/vrpsolver/pkg/routing/extractor"
	"github.com/vrpsolver/vrpsolver/pkg/routing/matrix"
	"github.com/vrpsolver/vrpsolver/pkg/routing/optimizer"
	"github.com/vrpsolver/vrpsolver/pkg/routing/route"
	"github.com/vrpsolver/vrpsolver/pkg/routing/solver"
)

// Engine 求解引擎，可被多个协程并发使用
type Engine struct {
	stallLimit    int
	maxIterations int
	lambda        float64
	workers       int
	tracer        Tracer
	time          dimension.TimeSettings
	logger        *logger.SolverLogger
}

// New 创建求解引擎
func New(opts ...Option) *Engine {
	e := defaultEngine()
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.NewSolverLogger()
	}
	return e
}

// Solve 使用默认配置求解
func Solve(ctx context.Context, p *model.RoutingProblem, v model.Variant, budget time.Duration) (*model.SolutionResult, error) {
	return New().Solve(ctx, p, v, budget)
}

// Solve 求解路径问题
//
// 校验失败返回 VALIDATION_FAILED / MALFORMED_EDGE；无可行解时返回 Feasible=false 的结果而不是错误；
// 取消时返回当前最优方案，只有在得到任何可行方案之前被取消才返回 TIMEOUT。
// budget <= 0 时使用问题类型的默认预算。
func (e *Engine) Solve(ctx context.Context, p *model.RoutingProblem, v model.Variant, budget time.Duration) (*model.SolutionResult, error) {
	start := time.Now()
	if p == nil {
		return nil, errors.InvalidInput("problem", "问题不能为空")
	}
	if err := p.Validate(v); err != nil {
		return nil, err
	}
	if budget <= 0 {
		budget = DefaultBudget(v)
	}
	deadline := start.Add(budget)

	e.logger.StartSolve(v.String(), p.LocationCount(), p.FleetSize(), budget)

	m, err := matrix.Build(p.LocationCount(), p.Edges)
	if err != nil {
		return nil, err
	}

	rc := route.NewContext(m, e.dimensions(p, v, m), p.Depot(), p.FleetSize(), p.Customers())
	phase := PhaseConstruction
	e.tracer.OnPhase(PhaseEvent{To: phase, Elapsed: time.Since(start)})

	stats := &model.SearchStatistics{}
	finish := func(res *model.SolutionResult) *model.SolutionResult {
		stats.Duration = time.Since(start)
		res.Statistics = stats
		e.logger.SolveComplete(stats.Duration, res.Objective, len(res.Routes), string(stats.StopReason))
		return res
	}
	transition := func(to Phase, objective int64) {
		e.logger.PhaseTransition(string(phase), string(to), objective)
		e.tracer.OnPhase(PhaseEvent{From: phase, To: to, Objective: objective, Elapsed: time.Since(start)})
		phase = to
	}

	if len(rc.Customers) == 0 {
		transition(PhaseDone, 0)
		stats.StopReason = model.StopNoCustomers
		res, err := e.extract(p, v, m, route.NewPlan(rc.Vehicles))
		if err != nil {
			return nil, err
		}
		return finish(res), nil
	}

	constructor := solver.NewCheapestInsertion(e.ordering(p, v)).WithLogger(e.logger)
	initial, err := constructor.Construct(ctx, rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTimeout, "在得到可行方案前求解被取消")
	}
	if !initial.Feasible {
		transition(PhaseInfeasible, 0)
		stats.StopReason = model.StopInfeasible
		res := model.NewInfeasibleResult(v)
		res.Warnings = append(res.Warnings, errors.NoFeasibleSolution(initial.Reason).
			WithField("location", initial.Unassigned).Error())
		return finish(res), nil
	}
	stats.InitialObjective = e.objective(v, initial.Cost)

	transition(PhaseImproving, initial.Cost)
	gls := optimizer.NewGuidedLocalSearch(&optimizer.Config{
		StallLimit:        e.stallLimit,
		MaxIterations:     e.maxIterations,
		LambdaCoefficient: e.lambda,
		Workers:           e.workers,
		Deadline:          deadline,
		OnMove:            e.tracer.OnMove,
	}).WithLogger(e.logger)

	improved, err := gls.Optimize(ctx, rc, initial.Plan)
	if err != nil {
		return nil, err
	}
	transition(PhaseDone, improved.Cost)

	stats.Iterations = improved.Iterations
	stats.AcceptedMoves = improved.AcceptedMoves
	stats.Improvements = improved.Improvements
	stats.Penalizations = improved.Penalizations
	stats.StopReason = improved.StopReason

	res, err := e.extract(p, v, m, improved.Plan)
	if err != nil {
		return nil, err
	}
	if improved.StopReason == model.StopBudget {
		stats.BudgetExhausted = true
		res.Warnings = append(res.Warnings, string(errors.CodeTimeBudgetExceeded))
		e.logger.BudgetExhausted(improved.Iterations, budget)
	}
	return finish(res), nil
}

// dimensions 按问题类型挂载约束维度
func (e *Engine) dimensions(p *model.RoutingProblem, v model.Variant, m *matrix.Matrix) *dimension.Set {
	limits := p.FleetLimits()
	switch v {
	case model.VariantTimeWindowed:
		// 成本矩阵与时间维度的放大倍数相同，矩阵可直接作为行驶时间
		return dimension.NewSet(
			dimension.NewTime(m, p.TimeWindows, p.Depot(), e.time),
			dimension.NewTravelLimit(m, limits),
		)
	default:
		return dimension.NewSet(dimension.NewCapacity(p.Demands, limits))
	}
}

// ordering 按问题类型确定插入顺序
func (e *Engine) ordering(p *model.RoutingProblem, v model.Variant) solver.Ordering {
	if v == model.VariantTimeWindowed {
		return solver.ByTimeWindow(p.TimeWindows)
	}
	return solver.ByDemand(p.Demands)
}

// objective 放大成本换算为目标值
func (e *Engine) objective(v model.Variant, cost int64) float64 {
	if v == model.VariantTimeWindowed {
		return float64(cost) / dimension.TimeScale
	}
	return matrix.Unscale(cost)
}

// extract 复核并生成结果，复核失败说明约束传播存在缺陷
func (e *Engine) extract(p *model.RoutingProblem, v model.Variant, m *matrix.Matrix, plan *route.Plan) (*model.SolutionResult, error) {
	res, err := extractor.Extract(extractor.Input{
		Problem: p,
		Variant: v,
		Matrix:  m,
		Routes:  plan.Routes,
		Time:    e.time,
	})
	if err != nil {
		e.logger.ConsistencyFault(err)
		return nil, err
	}
	return res, nil
}
