// Package matrix 将稀疏边列表展开为稠密的整数成本矩阵
package matrix

import (
	"math"

	"github.com/vrpsolver/vrpsolver/pkg/model"
)

const (
	// CostMultiplier 成本放大倍数，避免累积维度中的浮点误差
	CostMultiplier = 100

	// Infeasible 不可达弧的哨兵成本。保留高位余量，多次相加也不会溢出
	Infeasible int64 = math.MaxInt64 >> 4
)

// Matrix 稠密 N×N 成本矩阵（已按 CostMultiplier 放大）
type Matrix struct {
	n    int
	cost []int64
}

// Build 由边列表构建成本矩阵：对角线为 0，缺失弧为 Infeasible，重复边以后者为准
func Build(n int, edges []model.Edge) (*Matrix, error) {
	if err := model.ValidateEdges(n, edges); err != nil {
		return nil, err
	}

	m := &Matrix{n: n, cost: make([]int64, n*n)}
	for i := range m.cost {
		m.cost[i] = Infeasible
	}
	for i := 0; i < n; i++ {
		m.cost[i*n+i] = 0
	}
	for _, e := range edges {
		// 自环恒为 0
		if e.From == e.To {
			continue
		}
		m.cost[e.From*n+e.To] = Scale(e.Cost)
	}
	return m, nil
}

// FromRows 由已放大的二维数组构建矩阵（测试与外部预计算矩阵使用）
func FromRows(rows [][]int64) *Matrix {
	n := len(rows)
	m := &Matrix{n: n, cost: make([]int64, n*n)}
	for i, row := range rows {
		copy(m.cost[i*n:(i+1)*n], row)
	}
	return m
}

// Size 返回地点数量
func (m *Matrix) Size() int {
	return m.n
}

// At 返回弧 (i, j) 的放大成本
func (m *Matrix) At(i, j int) int64 {
	return m.cost[i*m.n+j]
}

// Reachable 检查弧 (i, j) 是否存在
func (m *Matrix) Reachable(i, j int) bool {
	return m.cost[i*m.n+j] < Infeasible
}

// PathCost 计算路径总成本，遇到不可达弧时返回 Infeasible
func (m *Matrix) PathCost(path []int) int64 {
	var total int64
	for k := 0; k+1 < len(path); k++ {
		total = SaturatingAdd(total, m.At(path[k], path[k+1]))
	}
	return total
}

// Row 返回第 i 行的只读切片
func (m *Matrix) Row(i int) []int64 {
	return m.cost[i*m.n : (i+1)*m.n]
}

// Scale 将原始成本放大为整数
func Scale(cost float64) int64 {
	scaled := math.Round(cost * CostMultiplier)
	if scaled >= float64(Infeasible) {
		return Infeasible
	}
	return int64(scaled)
}

// Unscale 将放大后的成本还原
func Unscale(cost int64) float64 {
	return float64(cost) / CostMultiplier
}

// SaturatingAdd 相加并截断到 Infeasible
func SaturatingAdd(a, b int64) int64 {
	if a >= Infeasible || b >= Infeasible || a > Infeasible-b {
		return Infeasible
	}
	return a + b
}
