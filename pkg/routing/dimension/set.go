package dimension

// Trace 路线上每个维度在各位置的累积区间，Cumuls[d][k] 对应 Dimensions()[d] 在完整路径第 k 个节点
type Trace struct {
	Names  []string
	Cumuls [][]Cumul
}

// Of 返回指定维度的区间序列
func (t Trace) Of(name string) []Cumul {
	for i, n := range t.Names {
		if n == name {
			return t.Cumuls[i]
		}
	}
	return nil
}

// Set 维度集合
//
// 构建完成后只读，可被多个评估协程并发调用。
type Set struct {
	dims []Dimension
}

// NewSet 创建维度集合
func NewSet(dims ...Dimension) *Set {
	s := &Set{dims: make([]Dimension, 0, len(dims))}
	for _, d := range dims {
		s.Register(d)
	}
	return s
}

// Register 注册维度，同名维度被替换
func (s *Set) Register(d Dimension) {
	for i, existing := range s.dims {
		if existing.Name() == d.Name() {
			s.dims[i] = d
			return
		}
	}
	s.dims = append(s.dims, d)
}

// Get 按名称获取维度
func (s *Set) Get(name string) Dimension {
	for _, d := range s.dims {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// Dimensions 返回所有维度（注册顺序）
func (s *Set) Dimensions() []Dimension {
	result := make([]Dimension, len(s.dims))
	copy(result, s.dims)
	return result
}

// Len 返回维度数量
func (s *Set) Len() int {
	return len(s.dims)
}

// Feasible 检查路线 depot → route → depot 在所有维度上可行
func (s *Set) Feasible(route []int, depot, vehicle int) bool {
	return s.Violation(route, depot, vehicle) == ""
}

// Violation 返回第一个不满足的维度名称，可行时返回空串
func (s *Set) Violation(route []int, depot, vehicle int) string {
	for _, d := range s.dims {
		if !walk(d, route, depot, vehicle, nil) {
			return d.Name()
		}
	}
	return ""
}

// CheckRoute 检查路线并记录各维度的累积区间
func (s *Set) CheckRoute(route []int, depot, vehicle int) (Trace, bool) {
	trace := Trace{
		Names:  make([]string, len(s.dims)),
		Cumuls: make([][]Cumul, len(s.dims)),
	}
	for i, d := range s.dims {
		cumuls := make([]Cumul, 0, len(route)+2)
		ok := walk(d, route, depot, vehicle, func(c Cumul) {
			cumuls = append(cumuls, c)
		})
		trace.Names[i] = d.Name()
		trace.Cumuls[i] = cumuls
		if !ok {
			return trace, false
		}
	}
	return trace, true
}

// walk 沿 depot → route → depot 传播单个维度
func walk(d Dimension, route []int, depot, vehicle int, visit func(Cumul)) bool {
	c, ok := d.Start(vehicle)
	if !ok || !d.WithinBounds(c, depot, vehicle) {
		return false
	}
	if visit != nil {
		visit(c)
	}

	prev := depot
	for _, node := range route {
		if c, ok = d.Propagate(c, prev, node, vehicle); !ok || !d.WithinBounds(c, node, vehicle) {
			return false
		}
		if visit != nil {
			visit(c)
		}
		prev = node
	}

	if c, ok = d.Propagate(c, prev, depot, vehicle); !ok || !d.WithinBounds(c, depot, vehicle) {
		return false
	}
	if visit != nil {
		visit(c)
	}
	return true
}
