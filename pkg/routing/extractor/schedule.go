package extractor

import (
	"fmt"
	"math"

	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/dimension"
	"github.com/vrpsolver/vrpsolver/pkg/routing/matrix"
)

type interval struct {
	lo, hi int64
}

func (iv interval) empty() bool { return iv.lo > iv.hi }

func (iv interval) clip(lo, hi int64) interval {
	return interval{lo: max(iv.lo, lo), hi: min(iv.hi, hi)}
}

// schedule 计算每个途经点的最早可行到达时间（未放大的时间单位）
//
// 前向求出各节点可达区间，后向收紧为能继续完成整条路线的区间，
// 再从最早出发时刻起贪心取最早时间。
func schedule(m *matrix.Matrix, windows []model.TimeWindow, depot int, visits []int, settings dimension.TimeSettings) ([]float64, error) {
	settings = settings.Normalize()
	horizon := scaleTime(settings.Horizon)
	wait := scaleTime(settings.MaxWait)

	path := make([]int, 0, len(visits)+2)
	path = append(path, depot)
	path = append(path, visits...)
	path = append(path, depot)

	window := func(node int) interval {
		w := windows[node]
		return interval{lo: scaleTime(w.Earliest), hi: scaleTime(w.Latest)}.clip(0, horizon)
	}

	forward := make([]interval, len(path))
	forward[0] = window(depot)
	if forward[0].empty() {
		return nil, fmt.Errorf("仓库时间窗 %v 超出时域", windows[depot])
	}
	for k := 1; k < len(path); k++ {
		t := m.At(path[k-1], path[k])
		w := window(path[k])
		forward[k] = interval{lo: forward[k-1].lo + t, hi: forward[k-1].hi + t + wait}.clip(w.lo, w.hi)
		if forward[k].empty() {
			return nil, fmt.Errorf("无法在时间窗 %v 内到达地点 %d", windows[path[k]], path[k])
		}
	}

	feasible := make([]interval, len(path))
	feasible[len(path)-1] = forward[len(path)-1]
	for k := len(path) - 2; k >= 0; k-- {
		t := m.At(path[k], path[k+1])
		next := feasible[k+1]
		feasible[k] = forward[k].clip(next.lo-t-wait, next.hi-t)
		if feasible[k].empty() {
			return nil, fmt.Errorf("地点 %d 之后的时间窗无法满足", path[k])
		}
	}

	arrivals := make([]float64, len(visits))
	at := feasible[0].lo
	for k := 1; k < len(path)-1; k++ {
		at = max(at+m.At(path[k-1], path[k]), feasible[k].lo)
		if !windows[path[k]].Contains(at / dimension.TimeScale) {
			return nil, fmt.Errorf("地点 %d 的到达时间 %d 不在时间窗 %v 内", path[k], at/dimension.TimeScale, windows[path[k]])
		}
		arrivals[k-1] = float64(at) / dimension.TimeScale
	}
	return arrivals, nil
}

func scaleTime(v int64) int64 {
	if v > math.MaxInt64/dimension.TimeScale {
		return math.MaxInt64 / dimension.TimeScale * dimension.TimeScale
	}
	return v * dimension.TimeScale
}
