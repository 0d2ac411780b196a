// Package dimension 定义沿路线累积的约束维度（载重、时间、行驶时长）
package dimension

import "math"

// Cumul 累积量在某节点的可达区间 [Min, Max]
type Cumul struct {
	Min int64
	Max int64
}

// Empty 区间是否为空
func (c Cumul) Empty() bool {
	return c.Min > c.Max
}

// Intersect 与 [lo, hi] 求交
func (c Cumul) Intersect(lo, hi int64) Cumul {
	if lo > c.Min {
		c.Min = lo
	}
	if hi < c.Max {
		c.Max = hi
	}
	return c
}

// Shift 区间整体平移，下界加 lo，上界加 hi
func (c Cumul) Shift(lo, hi int64) Cumul {
	return Cumul{Min: addClamped(c.Min, lo), Max: addClamped(c.Max, hi)}
}

// Dimension 约束维度接口
type Dimension interface {
	// Name 维度名称，Set 中唯一
	Name() string

	// Start 车辆在仓库出发时的初始区间，不可行时返回 false
	Start(vehicle int) (Cumul, bool)

	// Propagate 沿弧 from→to 传播累积区间，不可行时返回 false
	Propagate(c Cumul, from, to, vehicle int) (Cumul, bool)

	// WithinBounds 检查区间是否满足节点与车辆的上下界
	WithinBounds(c Cumul, node, vehicle int) bool
}

func addClamped(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64
	}
	return a + b
}
