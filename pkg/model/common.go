// Package model 定义路径规划引擎的核心数据模型
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Variant 问题类型
type Variant string

const (
	VariantCapacitated  Variant = "cvrp"  // 容量约束 (CVRP)
	VariantTimeWindowed Variant = "twvrp" // 时间窗约束 (TWVRP)
)

// ParseVariant 解析问题类型，兼容 CAPACITATED / TIME_WINDOWED 写法
func ParseVariant(s string) (Variant, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cvrp", "capacitated":
		return VariantCapacitated, true
	case "twvrp", "time_windowed", "time-windowed":
		return VariantTimeWindowed, true
	default:
		return "", false
	}
}

// String 返回问题类型名称
func (v Variant) String() string {
	return string(v)
}

// Valid 检查问题类型是否受支持
func (v Variant) Valid() bool {
	return v == VariantCapacitated || v == VariantTimeWindowed
}

// Coordinates 平面坐标（仅用于几何距离推导，权威成本以边列表为准）
type Coordinates struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance 计算两点之间的欧氏距离
func (c Coordinates) Distance(other Coordinates) float64 {
	return math.Hypot(other.X-c.X, other.Y-c.Y)
}

// EuclideanEdges 由坐标生成全连接有向边，rounded 为 true 时按 TSPLIB 习惯四舍五入取整
func EuclideanEdges(vertices []Coordinates, rounded bool) []Edge {
	n := len(vertices)
	if n < 2 {
		return nil
	}
	edges := make([]Edge, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := vertices[i].Distance(vertices[j])
			if rounded {
				d = math.Round(d)
			}
			edges = append(edges, Edge{From: i, To: j, Cost: d})
		}
	}
	return edges
}

// TimeWindow 时间窗（闭区间），序列化为 [earliest, latest]
type TimeWindow struct {
	Earliest int64
	Latest   int64
}

// Contains 检查时间点是否在时间窗内
func (tw TimeWindow) Contains(t int64) bool {
	return t >= tw.Earliest && t <= tw.Latest
}

// MarshalJSON 序列化为二元数组
func (tw TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{tw.Earliest, tw.Latest})
}

// UnmarshalJSON 从二元数组解析
func (tw *TimeWindow) UnmarshalJSON(data []byte) error {
	var pair []int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("时间窗必须是 [earliest, latest] 数组: %w", err)
	}
	return tw.fromPair(pair)
}

// MarshalYAML 序列化为二元数组
func (tw TimeWindow) MarshalYAML() (interface{}, error) {
	return []int64{tw.Earliest, tw.Latest}, nil
}

// UnmarshalYAML 从二元数组解析
func (tw *TimeWindow) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var pair []int64
	if err := unmarshal(&pair); err != nil {
		return fmt.Errorf("时间窗必须是 [earliest, latest] 数组: %w", err)
	}
	return tw.fromPair(pair)
}

func (tw *TimeWindow) fromPair(pair []int64) error {
	if len(pair) != 2 {
		return fmt.Errorf("时间窗需要 2 个元素, 实际 %d 个", len(pair))
	}
	tw.Earliest, tw.Latest = pair[0], pair[1]
	return nil
}
