// Package solver 提供初始解构造算法
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/vrpsolver/vrpsolver/pkg/logger"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/matrix"
	"github.com/vrpsolver/vrpsolver/pkg/routing/route"
)

// Constructor 初始解构造器接口
type Constructor interface {
	// Construct 生成初始方案
	Construct(ctx context.Context, rc *route.Context) (*Result, error)

	// Name 返回构造器名称
	Name() string
}

// Result 构造结果
type Result struct {
	Plan       *route.Plan   `json:"-"`
	Cost       int64         `json:"cost"`
	Feasible   bool          `json:"feasible"`
	Unassigned int           `json:"unassigned"` // 无法插入的地点，可行时为 -1
	Reason     string        `json:"reason,omitempty"`
	Insertions int           `json:"insertions"`
	Checks     int           `json:"checks"` // 可行性检查次数
	Duration   time.Duration `json:"duration"`
}

// Ordering 决定地点的插入顺序
type Ordering func(customers []int) []int

// ByTimeWindow 按 (最晚时间, 最早时间, 索引) 升序
func ByTimeWindow(windows []model.TimeWindow) Ordering {
	return func(customers []int) []int {
		ordered := append([]int(nil), customers...)
		sort.SliceStable(ordered, func(i, j int) bool {
			wi, wj := windows[ordered[i]], windows[ordered[j]]
			if wi.Latest != wj.Latest {
				return wi.Latest < wj.Latest
			}
			if wi.Earliest != wj.Earliest {
				return wi.Earliest < wj.Earliest
			}
			return ordered[i] < ordered[j]
		})
		return ordered
	}
}

// ByDemand 按需求降序，需求相同按索引升序（首次适应递减）
func ByDemand(demands []int64) Ordering {
	return func(customers []int) []int {
		ordered := append([]int(nil), customers...)
		sort.SliceStable(ordered, func(i, j int) bool {
			di, dj := demandAt(demands, ordered[i]), demandAt(demands, ordered[j])
			if di != dj {
				return di > dj
			}
			return ordered[i] < ordered[j]
		})
		return ordered
	}
}

// ByIndex 按索引升序
func ByIndex(customers []int) []int {
	ordered := append([]int(nil), customers...)
	sort.Ints(ordered)
	return ordered
}

// CheapestInsertion 最便宜插入构造器
//
// 按给定顺序逐个插入地点，每个地点放到插入增量最小的可行 (车辆, 位置)，
// 增量相同时取车辆编号最小、位置最靠前者。任何地点无可行位置即判定无解，不做重试。
type CheapestInsertion struct {
	order  Ordering
	logger *logger.SolverLogger
}

// NewCheapestInsertion 创建最便宜插入构造器
func NewCheapestInsertion(order Ordering) *CheapestInsertion {
	if order == nil {
		order = ByIndex
	}
	return &CheapestInsertion{
		order:  order,
		logger: logger.NewSolverLogger(),
	}
}

// WithLogger 替换日志器
func (s *CheapestInsertion) WithLogger(l *logger.SolverLogger) *CheapestInsertion {
	s.logger = l
	return s
}

// Name 返回构造器名称
func (s *CheapestInsertion) Name() string {
	return "CheapestInsertion"
}

// candidate 候选插入位置
type candidate struct {
	delta    int64
	vehicle  int
	position int
}

// Construct 执行最便宜插入
func (s *CheapestInsertion) Construct(ctx context.Context, rc *route.Context) (*Result, error) {
	startTime := time.Now()

	plan := route.NewPlan(rc.Vehicles)
	result := &Result{Plan: plan, Unassigned: -1}

	for _, loc := range s.order(rc.Customers) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidates := s.candidates(rc, plan, loc)

		inserted := false
		for _, cand := range candidates {
			r := insertAt(plan.Routes[cand.vehicle], cand.position, loc)
			result.Checks++
			if !rc.Feasible(cand.vehicle, r) {
				continue
			}
			plan.Routes[cand.vehicle] = r
			result.Insertions++
			inserted = true
			break
		}

		if !inserted {
			result.Unassigned = loc
			result.Reason = s.explain(rc, plan, loc)
			result.Duration = time.Since(startTime)
			s.logger.Infeasible(loc, result.Reason)
			return result, nil
		}
	}

	result.Feasible = true
	result.Cost = plan.Cost(rc)
	result.Duration = time.Since(startTime)
	return result, nil
}

// candidates 列出所有弧可达的插入位置，按 (增量, 车辆, 位置) 排序
func (s *CheapestInsertion) candidates(rc *route.Context, plan *route.Plan, loc int) []candidate {
	var result []candidate
	for v, r := range plan.Routes {
		for pos := 0; pos <= len(r); pos++ {
			prev := rc.Node(r, pos-1)
			next := rc.Node(r, pos)
			in, out := rc.Arc(prev, loc), rc.Arc(loc, next)
			if in >= matrix.Infeasible || out >= matrix.Infeasible {
				continue
			}
			result = append(result, candidate{
				delta:    in + out - rc.Arc(prev, next),
				vehicle:  v,
				position: pos,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].delta != result[j].delta {
			return result[i].delta < result[j].delta
		}
		if result[i].vehicle != result[j].vehicle {
			return result[i].vehicle < result[j].vehicle
		}
		return result[i].position < result[j].position
	})
	return result
}

// explain 给出地点无法插入的原因（追加到各路线末尾时的第一个违反项）
func (s *CheapestInsertion) explain(rc *route.Context, plan *route.Plan, loc int) string {
	for v, r := range plan.Routes {
		if reason := rc.Violation(v, insertAt(r, len(r), loc)); reason != "" {
			return reason
		}
	}
	return "no feasible position"
}

// insertAt 返回在 pos 处插入 loc 后的新路线
func insertAt(r []int, pos, loc int) []int {
	out := make([]int, 0, len(r)+1)
	out = append(out, r[:pos]...)
	out = append(out, loc)
	return append(out, r[pos:]...)
}

func demandAt(demands []int64, i int) int64 {
	if i < len(demands) {
		return demands[i]
	}
	return 0
}
