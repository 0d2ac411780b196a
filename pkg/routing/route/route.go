// Package route 定义搜索过程共享的路线方案与求解上下文
package route

import (
	"github.com/vrpsolver/vrpsolver/pkg/routing/dimension"
	"github.com/vrpsolver/vrpsolver/pkg/routing/matrix"
)

// Context 单次求解的只读上下文
type Context struct {
	Matrix    *matrix.Matrix
	Dims      *dimension.Set
	Depot     int
	Vehicles  int
	Customers []int
}

// NewContext 创建求解上下文
func NewContext(m *matrix.Matrix, dims *dimension.Set, depot, vehicles int, customers []int) *Context {
	if dims == nil {
		dims = dimension.NewSet()
	}
	return &Context{
		Matrix:    m,
		Dims:      dims,
		Depot:     depot,
		Vehicles:  vehicles,
		Customers: customers,
	}
}

// Arc 返回弧成本
func (c *Context) Arc(from, to int) int64 {
	return c.Matrix.At(from, to)
}

// RouteCost 计算 depot → r → depot 的成本
func (c *Context) RouteCost(r []int) int64 {
	if len(r) == 0 {
		return 0
	}
	total := c.Matrix.At(c.Depot, r[0])
	for k := 0; k+1 < len(r); k++ {
		total = matrix.SaturatingAdd(total, c.Matrix.At(r[k], r[k+1]))
	}
	return matrix.SaturatingAdd(total, c.Matrix.At(r[len(r)-1], c.Depot))
}

// Feasible 检查单条路线：弧全部可达且所有维度可行
func (c *Context) Feasible(vehicle int, r []int) bool {
	if vehicle < 0 || vehicle >= c.Vehicles {
		return false
	}
	if len(r) > 0 && c.RouteCost(r) >= matrix.Infeasible {
		return false
	}
	return c.Dims.Feasible(r, c.Depot, vehicle)
}

// Violation 返回路线不可行的原因，可行时返回空串
func (c *Context) Violation(vehicle int, r []int) string {
	if vehicle < 0 || vehicle >= c.Vehicles {
		return "vehicle"
	}
	if len(r) > 0 && c.RouteCost(r) >= matrix.Infeasible {
		return "unreachable"
	}
	return c.Dims.Violation(r, c.Depot, vehicle)
}

// Node 返回路线在扩展路径中第 k 个节点：k == -1 或 k == len(r) 时为仓库
func (c *Context) Node(r []int, k int) int {
	if k < 0 || k >= len(r) {
		return c.Depot
	}
	return r[k]
}

// Plan 路线方案：Routes[v] 为第 v 辆车依次访问的地点（不含仓库）
type Plan struct {
	Routes [][]int
}

// NewPlan 创建空方案
func NewPlan(vehicles int) *Plan {
	return &Plan{Routes: make([][]int, vehicles)}
}

// Clone 深拷贝方案
func (p *Plan) Clone() *Plan {
	clone := &Plan{Routes: make([][]int, len(p.Routes))}
	for v, r := range p.Routes {
		if len(r) > 0 {
			clone.Routes[v] = append([]int(nil), r...)
		}
	}
	return clone
}

// Cost 计算方案总成本
func (p *Plan) Cost(c *Context) int64 {
	var total int64
	for _, r := range p.Routes {
		total = matrix.SaturatingAdd(total, c.RouteCost(r))
	}
	return total
}

// Feasible 检查方案中每条路线
func (p *Plan) Feasible(c *Context) bool {
	for v, r := range p.Routes {
		if !c.Feasible(v, r) {
			return false
		}
	}
	return true
}

// ArcCount 非空路线上的弧数量（含进出仓库）
func (p *Plan) ArcCount() int {
	arcs := 0
	for _, r := range p.Routes {
		if len(r) > 0 {
			arcs += len(r) + 1
		}
	}
	return arcs
}

// Visited 已安排的地点数量
func (p *Plan) Visited() int {
	n := 0
	for _, r := range p.Routes {
		n += len(r)
	}
	return n
}

// ForEachArc 依次遍历所有非空路线上的弧
func (p *Plan) ForEachArc(depot int, fn func(vehicle, from, to int)) {
	for v, r := range p.Routes {
		if len(r) == 0 {
			continue
		}
		prev := depot
		for _, node := range r {
			fn(v, prev, node)
			prev = node
		}
		fn(v, prev, depot)
	}
}

// Equal 比较两个方案是否完全相同
func (p *Plan) Equal(other *Plan) bool {
	if len(p.Routes) != len(other.Routes) {
		return false
	}
	for v := range p.Routes {
		if len(p.Routes[v]) != len(other.Routes[v]) {
			return false
		}
		for k := range p.Routes[v] {
			if p.Routes[v][k] != other.Routes[v][k] {
				return false
			}
		}
	}
	return true
}
