package model

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/vrpsolver/vrpsolver/pkg/errors"
)

// 车型默认值，与历史请求格式保持一致
const (
	DefaultVehicleCapacity = 50
	DefaultVehicleNumber   = 1
)

// MaxFleetSize 地点数较少时允许的车辆总数上限
const MaxFleetSize = 10000

// Edge 有向边
type Edge struct {
	From int     `json:"frm" yaml:"frm"`
	To   int     `json:"to" yaml:"to"`
	Cost float64 `json:"cost" yaml:"cost"` // 距离或行驶时间
}

// VehicleType 车型：CVRP 中为容量，TWVRP 中为单车路线时长上限
type VehicleType struct {
	Capacity int64 `json:"capacity" yaml:"capacity"`
	Number   int   `json:"number" yaml:"number"`
}

// vehicleTypeInput 车型输入，字段缺省时为 nil
type vehicleTypeInput struct {
	Capacity *int64 `json:"capacity" yaml:"capacity"`
	Number   *int   `json:"number" yaml:"number"`
}

func (in vehicleTypeInput) apply(vt *VehicleType) {
	vt.Capacity = DefaultVehicleCapacity
	vt.Number = DefaultVehicleNumber
	if in.Capacity != nil {
		vt.Capacity = *in.Capacity
	}
	if in.Number != nil {
		vt.Number = *in.Number
	}
}

// UnmarshalJSON 解析车型，缺省字段取默认值
func (vt *VehicleType) UnmarshalJSON(data []byte) error {
	var in vehicleTypeInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	in.apply(vt)
	return nil
}

// UnmarshalYAML 同 UnmarshalJSON
func (vt *VehicleType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var in vehicleTypeInput
	if err := unmarshal(&in); err != nil {
		return err
	}
	in.apply(vt)
	return nil
}

// RoutingProblem 路径规划问题（一次求解内只读）
type RoutingProblem struct {
	Vehicles     []VehicleType `json:"vehicles" yaml:"vehicles"`
	Vertices     []Coordinates `json:"vertices" yaml:"vertices"`
	Edges        []Edge        `json:"edges" yaml:"edges"`
	DepotIndices []int         `json:"depot_indices" yaml:"depot_indices"`
	Demands      []int64       `json:"demands,omitempty" yaml:"demands,omitempty"`
	TimeWindows  []TimeWindow  `json:"time_windows,omitempty" yaml:"time_windows,omitempty"`
	BestKnown    *float64      `json:"best_sol,omitempty" yaml:"best_sol,omitempty"` // 已知最优目标值，仅用于基准对比
}

// LocationCount 返回地点数量
func (p *RoutingProblem) LocationCount() int {
	return len(p.Vertices)
}

// FleetSize 返回车辆总数
func (p *RoutingProblem) FleetSize() int {
	total := 0
	for _, vt := range p.Vehicles {
		total += vt.Number
	}
	return total
}

// FleetLimits 按车型展开后每辆车的容量/时长上限
func (p *RoutingProblem) FleetLimits() []int64 {
	limits := make([]int64, 0, p.FleetSize())
	for _, vt := range p.Vehicles {
		for i := 0; i < vt.Number; i++ {
			limits = append(limits, vt.Capacity)
		}
	}
	return limits
}

// Depot 返回默认仓库（第一个仓库）
func (p *RoutingProblem) Depot() int {
	return p.DepotIndices[0]
}

// IsDepot 检查地点是否为仓库
func (p *RoutingProblem) IsDepot(i int) bool {
	for _, d := range p.DepotIndices {
		if d == i {
			return true
		}
	}
	return false
}

// Customers 返回所有非仓库地点（按索引升序）
func (p *RoutingProblem) Customers() []int {
	customers := make([]int, 0, len(p.Vertices))
	for i := range p.Vertices {
		if !p.IsDepot(i) {
			customers = append(customers, i)
		}
	}
	return customers
}

// DemandOf 返回地点需求，未提供需求时为 0
func (p *RoutingProblem) DemandOf(i int) int64 {
	if i < len(p.Demands) {
		return p.Demands[i]
	}
	return 0
}

// Validate 校验问题数据，失败时返回指明字段的 VALIDATION_FAILED / MALFORMED_EDGE 错误
func (p *RoutingProblem) Validate(variant Variant) error {
	if !variant.Valid() {
		return errors.UnsupportedVariant(string(variant))
	}

	ve := &errors.ValidationErrors{}
	n := len(p.Vertices)

	if len(p.Vehicles) == 0 {
		ve.Add("vehicles", "至少需要一种车型")
	}
	for i, vt := range p.Vehicles {
		if vt.Number < 1 {
			ve.Addf(fieldIndex("vehicles", i)+".number", "车辆数量必须 >= 1, 实际 %d", vt.Number)
		}
		if vt.Capacity < 0 {
			ve.Addf(fieldIndex("vehicles", i)+".capacity", "容量/时长不能为负, 实际 %d", vt.Capacity)
		}
	}

	if n == 0 {
		ve.Add("vertices", "至少需要一个地点")
	}

	// 车辆总数上限取 MaxFleetSize 与地点数中的较大者
	fleetLimit := max(MaxFleetSize, n)
	fleet := 0
	for _, vt := range p.Vehicles {
		if vt.Number > 0 {
			fleet += min(vt.Number, fleetLimit+1)
		}
		if fleet > fleetLimit {
			ve.Addf("vehicles", "车辆总数超过上限 %d", fleetLimit)
			break
		}
	}

	if len(p.DepotIndices) == 0 {
		ve.Add("depot_indices", "至少需要一个仓库")
	}
	for i, d := range p.DepotIndices {
		if d < 0 || d >= n {
			ve.Addf(fieldIndex("depot_indices", i), "仓库索引 %d 越界 [0, %d)", d, n)
		}
	}

	switch variant {
	case VariantCapacitated:
		if p.Demands == nil {
			ve.Add("demands", "CVRP 必须提供需求列表")
		}
		if p.TimeWindows != nil {
			ve.Add("time_windows", "CVRP 不接受时间窗")
		}
	case VariantTimeWindowed:
		if p.TimeWindows == nil {
			ve.Add("time_windows", "TWVRP 必须提供时间窗列表")
		}
	}

	if p.Demands != nil {
		if len(p.Demands) != n {
			ve.Addf("demands", "需求数量 %d 与地点数量 %d 不一致", len(p.Demands), n)
		}
		for i, d := range p.Demands {
			if d < 0 {
				ve.Addf(fieldIndex("demands", i), "需求不能为负, 实际 %d", d)
			} else if d != 0 && p.IsDepot(i) {
				ve.Addf(fieldIndex("demands", i), "仓库需求必须为 0, 实际 %d", d)
			}
		}
	}

	if p.TimeWindows != nil {
		if len(p.TimeWindows) != n {
			ve.Addf("time_windows", "时间窗数量 %d 与地点数量 %d 不一致", len(p.TimeWindows), n)
		}
		for i, tw := range p.TimeWindows {
			if tw.Earliest < 0 {
				ve.Addf(fieldIndex("time_windows", i), "最早时间不能为负, 实际 %d", tw.Earliest)
			}
			if tw.Earliest > tw.Latest {
				ve.Addf(fieldIndex("time_windows", i), "最早时间 %d 晚于最晚时间 %d", tw.Earliest, tw.Latest)
			}
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}

	return ValidateEdges(n, p.Edges)
}

// ValidateEdges 校验边列表索引与成本
func ValidateEdges(n int, edges []Edge) error {
	for i, e := range edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return errors.MalformedEdge(i, "索引越界").
				WithField("from", e.From).
				WithField("to", e.To)
		}
		if e.Cost < 0 || math.IsNaN(e.Cost) || math.IsInf(e.Cost, 0) {
			return errors.MalformedEdge(i, "成本必须为非负数").WithField("cost", e.Cost)
		}
	}
	return nil
}

func fieldIndex(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}
