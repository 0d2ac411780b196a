package model

import "time"

// InfeasibleObjective 无可行解时的目标值哨兵
const InfeasibleObjective = -1

// SolveStatus 求解状态
type SolveStatus string

const (
	StatusSolved     SolveStatus = "SOLVED"     // 找到可行解
	StatusInfeasible SolveStatus = "INFEASIBLE" // 无可行解
)

// StopReason 改进阶段结束原因
type StopReason string

const (
	StopBudget         StopReason = "budget"          // 时间预算耗尽
	StopStall          StopReason = "stall"           // 连续迭代无改进
	StopIterationLimit StopReason = "iteration_limit" // 达到迭代上限
	StopNoImprovement  StopReason = "no_improvement"  // 局部最优且无法惩罚逃逸
	StopCancelled      StopReason = "cancelled"       // 调用方取消
	StopNoCustomers    StopReason = "no_customers"    // 没有需要访问的地点
	StopInfeasible     StopReason = "infeasible"      // 构造阶段失败
)

// Deterministic 该结束原因是否与墙钟无关（相同输入必然复现）
func (r StopReason) Deterministic() bool {
	switch r {
	case StopStall, StopIterationLimit, StopNoImprovement, StopNoCustomers, StopInfeasible:
		return true
	default:
		return false
	}
}

// RouteResult 单车路线
type RouteResult struct {
	Vehicle  int       `json:"vehicle"`
	Visits   []int     `json:"visits"`             // 途经地点（不含首尾仓库）
	Cost     float64   `json:"cost"`               // CVRP 为距离，TWVRP 为行驶时间
	Load     int64     `json:"load"`               // 需求合计
	Arrivals []float64 `json:"arrivals,omitempty"` // 各途经点最早可行到达时间（仅 TWVRP）
}

// SearchStatistics 搜索统计
type SearchStatistics struct {
	Iterations       int           `json:"iterations"`
	AcceptedMoves    int           `json:"accepted_moves"`
	Improvements     int           `json:"improvements"`
	Penalizations    int           `json:"penalizations"`
	InitialObjective float64       `json:"initial_objective"`
	StopReason       StopReason    `json:"stop_reason"`
	BudgetExhausted  bool          `json:"budget_exhausted"`
	Duration         time.Duration `json:"duration"`
}

// SolutionResult 求解结果
type SolutionResult struct {
	Variant    Variant           `json:"variant"`
	Routes     []RouteResult     `json:"routes"`
	Objective  float64           `json:"objective"`
	Feasible   bool              `json:"feasible"`
	Status     SolveStatus       `json:"status"`
	TotalLoad  int64             `json:"total_load"`
	Warnings   []string          `json:"warnings,omitempty"`
	Statistics *SearchStatistics `json:"statistics,omitempty"`
}

// NewInfeasibleResult 创建无可行解结果：空路线、目标值 -1
func NewInfeasibleResult(variant Variant) *SolutionResult {
	return &SolutionResult{
		Variant:   variant,
		Routes:    []RouteResult{},
		Objective: InfeasibleObjective,
		Feasible:  false,
		Status:    StatusInfeasible,
	}
}

// Visits 返回所有路线的访问序列
func (s *SolutionResult) Visits() [][]int {
	visits := make([][]int, len(s.Routes))
	for i, r := range s.Routes {
		visits[i] = append([]int(nil), r.Visits...)
	}
	return visits
}

// UsedVehicles 返回使用的车辆数
func (s *SolutionResult) UsedVehicles() int {
	return len(s.Routes)
}

// Gap 计算相对已知最优值的差距（百分比），未知最优值时返回 false
func (s *SolutionResult) Gap(bestKnown *float64) (float64, bool) {
	if bestKnown == nil || *bestKnown <= 0 || !s.Feasible {
		return 0, false
	}
	return (s.Objective - *bestKnown) / *bestKnown * 100, true
}
