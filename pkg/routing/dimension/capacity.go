package dimension

// CapacityName 载重维度名称
const CapacityName = "capacity"

// Capacity 载重维度：每到一个节点累加其需求，无松弛，全程不超过车辆容量
type Capacity struct {
	demands []int64
	limits  []int64
}

// NewCapacity 创建载重维度，limits 按车辆展开
func NewCapacity(demands, limits []int64) *Capacity {
	return &Capacity{demands: demands, limits: limits}
}

// Name 返回维度名称
func (c *Capacity) Name() string {
	return CapacityName
}

// Start 出发时载重为 0
func (c *Capacity) Start(vehicle int) (Cumul, bool) {
	start := Cumul{}
	return start, c.WithinBounds(start, 0, vehicle)
}

// Propagate 累加目标节点需求
func (c *Capacity) Propagate(cur Cumul, _, to, vehicle int) (Cumul, bool) {
	d := c.demand(to)
	next := cur.Shift(d, d)
	return next, c.WithinBounds(next, to, vehicle)
}

// WithinBounds 检查 [0, capacity]
func (c *Capacity) WithinBounds(cur Cumul, _, vehicle int) bool {
	if vehicle < 0 || vehicle >= len(c.limits) {
		return false
	}
	return !cur.Empty() && cur.Min >= 0 && cur.Max <= c.limits[vehicle]
}

func (c *Capacity) demand(node int) int64 {
	if node < len(c.demands) {
		return c.demands[node]
	}
	return 0
}
