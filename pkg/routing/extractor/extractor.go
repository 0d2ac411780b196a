// Package extractor 将内部路线方案转换为对外的求解结果，并独立复核其可行性
package extractor

import (
	"fmt"

	"github.com/vrpsolver/vrpsolver/pkg/errors"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/dimension"
	"github.com/vrpsolver/vrpsolver/pkg/routing/matrix"
)

// Input 提取输入
type Input struct {
	Problem *model.RoutingProblem
	Variant model.Variant
	Matrix  *matrix.Matrix
	Routes  [][]int               // 按车辆编号的访问序列（不含仓库）
	Time    dimension.TimeSettings // 仅 TWVRP 使用
}

// Extract 复核方案并生成结果
//
// 成本、载重与时间表均按问题数据重新计算，不依赖搜索阶段的维度传播。
// 任何不一致都返回 INTERNAL_CONSISTENCY 错误，不产出结果。
func Extract(in Input) (*model.SolutionResult, error) {
	p := in.Problem
	depot := p.Depot()
	limits := p.FleetLimits()
	n := p.LocationCount()

	if len(in.Routes) > len(limits) {
		return nil, errors.InternalConsistency(len(limits), fmt.Sprintf("方案包含 %d 辆车，车队只有 %d 辆", len(in.Routes), len(limits)))
	}

	result := &model.SolutionResult{
		Variant:  in.Variant,
		Routes:   make([]model.RouteResult, 0, len(in.Routes)),
		Feasible: true,
		Status:   model.StatusSolved,
	}

	seen := make([]bool, n)
	var total int64
	for v, visits := range in.Routes {
		if len(visits) == 0 {
			continue
		}

		for _, loc := range visits {
			if loc < 0 || loc >= n {
				return nil, errors.InternalConsistency(v, fmt.Sprintf("地点索引 %d 越界", loc))
			}
			if p.IsDepot(loc) {
				return nil, errors.InternalConsistency(v, fmt.Sprintf("路线中包含仓库 %d", loc))
			}
			if seen[loc] {
				return nil, errors.InternalConsistency(v, fmt.Sprintf("地点 %d 被重复访问", loc))
			}
			seen[loc] = true
		}

		cost, err := routeCost(in.Matrix, depot, v, visits)
		if err != nil {
			return nil, err
		}

		var load int64
		for _, loc := range visits {
			load += p.DemandOf(loc)
		}

		rr := model.RouteResult{
			Vehicle: v,
			Visits:  append([]int(nil), visits...),
			Load:    load,
		}

		switch in.Variant {
		case model.VariantCapacitated:
			if load > limits[v] {
				return nil, errors.InternalConsistency(v, fmt.Sprintf("载重 %d 超过容量 %d", load, limits[v]))
			}
			rr.Cost = matrix.Unscale(cost)
		case model.VariantTimeWindowed:
			if cost > scaleTime(limits[v]) {
				return nil, errors.InternalConsistency(v, fmt.Sprintf("行驶时间 %.2f 超过上限 %d", float64(cost)/dimension.TimeScale, limits[v]))
			}
			arrivals, err := schedule(in.Matrix, p.TimeWindows, depot, visits, in.Time)
			if err != nil {
				return nil, errors.InternalConsistency(v, err.Error())
			}
			rr.Cost = float64(cost) / dimension.TimeScale
			rr.Arrivals = arrivals
		default:
			return nil, errors.UnsupportedVariant(string(in.Variant))
		}

		total += cost
		result.TotalLoad += load
		result.Routes = append(result.Routes, rr)
	}

	for _, c := range p.Customers() {
		if !seen[c] {
			return nil, errors.InternalConsistency(-1, fmt.Sprintf("地点 %d 未被访问", c))
		}
	}

	if in.Variant == model.VariantTimeWindowed {
		result.Objective = float64(total) / dimension.TimeScale
	} else {
		result.Objective = matrix.Unscale(total)
	}
	return result, nil
}

// routeCost 重新累加 depot → visits → depot 的弧成本
func routeCost(m *matrix.Matrix, depot, vehicle int, visits []int) (int64, error) {
	var total int64
	prev := depot
	for _, loc := range append(append([]int(nil), visits...), depot) {
		if !m.Reachable(prev, loc) {
			return 0, errors.InternalConsistency(vehicle, fmt.Sprintf("弧 %d→%d 不可达", prev, loc))
		}
		total += m.At(prev, loc)
		prev = loc
	}
	return total, nil
}
