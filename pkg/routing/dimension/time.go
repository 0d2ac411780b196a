package dimension

import (
	"math"

	"github.com/vrpsolver/vrpsolver/pkg/model"
)

// 时间维度名称
const (
	TimeName        = "time"
	TravelLimitName = "travel_limit"
)

// TimeScale 时间量的放大倍数，与距离的放大倍数相互独立
const TimeScale = 100

// 时间维度默认参数（未放大）
const (
	DefaultMaxWait int64 = 30
	DefaultHorizon int64 = 300000
)

// TimeSettings 时间维度参数（未放大的时间单位）
type TimeSettings struct {
	MaxWait int64 `json:"max_wait" yaml:"max_wait"` // 每段最多等待
	Horizon int64 `json:"horizon" yaml:"horizon"`   // 规划时域上界
}

// DefaultTimeSettings 默认时间参数
func DefaultTimeSettings() TimeSettings {
	return TimeSettings{MaxWait: DefaultMaxWait, Horizon: DefaultHorizon}
}

// Normalize 负的等待上限与非正的时域回落为默认值，等待上限 0 表示不允许等待
func (s TimeSettings) Normalize() TimeSettings {
	if s.MaxWait < 0 {
		s.MaxWait = DefaultMaxWait
	}
	if s.Horizon <= 0 {
		s.Horizon = DefaultHorizon
	}
	return s
}

// Transit 弧上的转移量（已按 TimeScale 放大）
type Transit interface {
	At(from, to int) int64
	Reachable(from, to int) bool
}

// Time 时间窗维度
//
// 到达区间按 [Min+t, Max+t+maxWait] ∩ window(to) ∩ [0, horizon] 传播，
// 区间为空即迟到（或早到超过允许等待）。仓库时间窗同时约束出发与返回。
type Time struct {
	transit Transit
	depot   int
	windows []Cumul
	maxWait int64
	horizon int64
}

// NewTime 创建时间窗维度，windows 为未放大的原始时间窗
func NewTime(transit Transit, windows []model.TimeWindow, depot int, settings TimeSettings) *Time {
	settings = settings.Normalize()
	scaled := make([]Cumul, len(windows))
	for i, w := range windows {
		scaled[i] = Cumul{Min: scaleTime(w.Earliest), Max: scaleTime(w.Latest)}
	}
	return &Time{
		transit: transit,
		depot:   depot,
		windows: scaled,
		maxWait: scaleTime(settings.MaxWait),
		horizon: scaleTime(settings.Horizon),
	}
}

// Name 返回维度名称
func (t *Time) Name() string {
	return TimeName
}

// Start 出发时刻为仓库时间窗与时域的交集
func (t *Time) Start(_ int) (Cumul, bool) {
	start := t.clip(Cumul{Min: 0, Max: t.horizon}, t.depot)
	return start, !start.Empty()
}

// Propagate 行驶后允许等待至多 maxWait，再与目标时间窗求交
func (t *Time) Propagate(c Cumul, from, to, _ int) (Cumul, bool) {
	if !t.transit.Reachable(from, to) {
		return c, false
	}
	travel := t.transit.At(from, to)
	next := t.clip(c.Shift(travel, travel+t.maxWait), to)
	return next, !next.Empty()
}

// WithinBounds 检查区间落在时间窗与时域内
func (t *Time) WithinBounds(c Cumul, node, _ int) bool {
	if c.Empty() || c.Min < 0 || c.Max > t.horizon {
		return false
	}
	if node < len(t.windows) {
		w := t.windows[node]
		return c.Min >= w.Min && c.Max <= w.Max
	}
	return true
}

func (t *Time) clip(c Cumul, node int) Cumul {
	c = c.Intersect(0, t.horizon)
	if node < len(t.windows) {
		w := t.windows[node]
		c = c.Intersect(w.Min, w.Max)
	}
	return c
}

// TravelLimit 单车累计行驶时间上限（TWVRP 中车型容量即为时长上限）
type TravelLimit struct {
	transit Transit
	limits  []int64
}

// NewTravelLimit 创建行驶时长维度，limits 为未放大的每车上限
func NewTravelLimit(transit Transit, limits []int64) *TravelLimit {
	scaled := make([]int64, len(limits))
	for i, l := range limits {
		scaled[i] = scaleTime(l)
	}
	return &TravelLimit{transit: transit, limits: scaled}
}

// Name 返回维度名称
func (l *TravelLimit) Name() string {
	return TravelLimitName
}

// Start 出发时累计行驶为 0
func (l *TravelLimit) Start(vehicle int) (Cumul, bool) {
	start := Cumul{}
	return start, l.WithinBounds(start, 0, vehicle)
}

// Propagate 累加弧上行驶时间
func (l *TravelLimit) Propagate(c Cumul, from, to, vehicle int) (Cumul, bool) {
	if !l.transit.Reachable(from, to) {
		return c, false
	}
	travel := l.transit.At(from, to)
	next := c.Shift(travel, travel)
	return next, l.WithinBounds(next, to, vehicle)
}

// WithinBounds 检查 [0, limit]
func (l *TravelLimit) WithinBounds(c Cumul, _, vehicle int) bool {
	if vehicle < 0 || vehicle >= len(l.limits) {
		return false
	}
	return !c.Empty() && c.Min >= 0 && c.Max <= l.limits[vehicle]
}

// scaleTime 放大时间量，溢出时截断
func scaleTime(v int64) int64 {
	if v > math.MaxInt64/TimeScale {
		return math.MaxInt64 / TimeScale * TimeScale
	}
	return v * TimeScale
}
