// Package service 编排一次完整的求解：校验、缓存、求解、指标与持久化
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vrpsolver/vrpsolver/internal/cache"
	"github.com/vrpsolver/vrpsolver/internal/config"
	"github.com/vrpsolver/vrpsolver/internal/metrics"
	"github.com/vrpsolver/vrpsolver/internal/repository"
	"github.com/vrpsolver/vrpsolver/pkg/errors"
	"github.com/vrpsolver/vrpsolver/pkg/logger"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/engine"
	"golang.org/x/sync/errgroup"
)

// Request 求解请求
type Request struct {
	Name    string                `json:"name,omitempty"` // 批量求解时的标识，如文件名
	Problem *model.RoutingProblem `json:"problem"`
	Variant model.Variant         `json:"variant"`
	Budget  time.Duration         `json:"budget,omitempty"` // <= 0 使用配置中的预算
}

// Response 求解响应
type Response struct {
	Name        string                `json:"name,omitempty"`
	RunID       uuid.UUID             `json:"run_id"`
	ProblemHash string                `json:"problem_hash"`
	Cached      bool                  `json:"cached"`
	Gap         *float64              `json:"gap,omitempty"` // 相对已知最优值的百分比差距
	Result      *model.SolutionResult `json:"result"`
}

// BatchItem 批量求解的单项结果
type BatchItem struct {
	Response *Response `json:"response,omitempty"`
	Err      error     `json:"-"`
}

// SolveService 求解服务
type SolveService struct {
	cfg     config.SolverConfig
	engine  *engine.Engine
	cache   cache.ResultCache
	runs    repository.SolveRunRepositoryInterface
	metrics *metrics.Metrics
}

// Option 服务选项
type Option func(*SolveService)

// WithEngine 使用指定引擎
func WithEngine(e *engine.Engine) Option {
	return func(s *SolveService) { s.engine = e }
}

// WithCache 启用结果缓存
func WithCache(c cache.ResultCache) Option {
	return func(s *SolveService) { s.cache = c }
}

// WithRepository 启用求解记录持久化
func WithRepository(r repository.SolveRunRepositoryInterface) Option {
	return func(s *SolveService) { s.runs = r }
}

// WithMetrics 启用指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SolveService) { s.metrics = m }
}

// NewSolveService 创建求解服务
func NewSolveService(cfg config.SolverConfig, opts ...Option) *SolveService {
	s := &SolveService{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		engineOpts := cfg.EngineOptions()
		if cfg.TraceMovesPerSecond > 0 {
			engineOpts = append(engineOpts, engine.WithTracer(engine.NewLogTracer(*logger.Get(), cfg.TraceMovesPerSecond)))
		}
		s.engine = engine.New(engineOpts...)
	}
	if s.cfg.BatchParallelism < 1 {
		s.cfg.BatchParallelism = 1
	}
	return s
}

// Solve 求解单个问题
func (s *SolveService) Solve(ctx context.Context, req Request) (*Response, error) {
	if req.Problem == nil {
		return nil, errors.InvalidInput("problem", "问题不能为空")
	}
	if err := req.Problem.Validate(req.Variant); err != nil {
		return nil, err
	}

	hash, err := cache.Key(req.Problem, req.Variant)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "计算问题摘要失败")
	}
	cacheKey, err := cache.ResultKey(hash, s.cfg.ResultSettings())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "计算缓存键失败")
	}

	runID := uuid.New()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID.String())
	log := logger.WithContext(ctx)

	resp := &Response{Name: req.Name, RunID: runID, ProblemHash: hash}

	if cached := s.lookup(ctx, cacheKey); cached != nil {
		resp.Cached = true
		resp.Result = cached
		resp.Gap = gap(req.Problem, cached)
		log.Info().Str("problem_hash", hash).Msg("命中结果缓存")
		return resp, nil
	}

	budget := req.Budget
	if budget <= 0 {
		budget = s.cfg.Budget(req.Variant)
	}

	start := time.Now()
	res, err := s.engine.Solve(ctx, req.Problem, req.Variant, budget)
	if err != nil {
		log.Error().Err(err).Str("variant", req.Variant.String()).Msg("求解失败")
		return nil, err
	}

	log.Info().
		Str("variant", req.Variant.String()).
		Bool("feasible", res.Feasible).
		Float64("objective", res.Objective).
		Int("used_vehicles", res.UsedVehicles()).
		Msg("求解完成")

	if s.metrics != nil {
		s.metrics.RecordSolve(req.Variant, res.Status, time.Since(start), res.Statistics)
		s.metrics.SetObjective(req.Variant, res)
	}

	if s.runs != nil {
		run := repository.NewSolveRun(runID, hash, req.Problem, res)
		if err := s.runs.Create(ctx, run); err != nil {
			log.Warn().Err(err).Msg("保存求解记录失败")
		}
	}

	if s.cache != nil && cache.Cacheable(res) {
		if err := s.cache.Set(ctx, cacheKey, res); err != nil {
			log.Warn().Err(err).Msg("写入结果缓存失败")
		}
	}

	resp.Result = res
	resp.Gap = gap(req.Problem, res)
	return resp, nil
}

// SolveBatch 并发求解多个问题，结果顺序与请求一致，单项失败不影响其他请求
func (s *SolveService) SolveBatch(ctx context.Context, reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchParallelism)
	for i := range reqs {
		g.Go(func() error {
			resp, err := s.Solve(ctx, reqs[i])
			items[i] = BatchItem{Response: resp, Err: err}
			return nil
		})
	}
	g.Wait()

	return items
}

// lookup 读取缓存，缓存故障视为未命中
func (s *SolveService) lookup(ctx context.Context, key string) *model.SolutionResult {
	if s.cache == nil {
		return nil
	}
	res, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.WithContext(ctx).Warn().Err(err).Msg("读取结果缓存失败")
		res = nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(res != nil)
	}
	return res
}

func gap(p *model.RoutingProblem, res *model.SolutionResult) *float64 {
	if g, ok := res.Gap(p.BestKnown); ok {
		return &g
	}
	return nil
}
