package optimizer

import "github.com/vrpsolver/vrpsolver/pkg/routing/route"

// Kind 邻域移动类型
type Kind int

const (
	KindRelocate   Kind = iota // 移动单点（路线内/路线间）
	KindSwap                   // 交换两点（路线内/路线间）
	KindTwoOpt                 // 路线内片段反转
	KindTwoOptStar             // 两条路线交换尾段
)

// String 返回移动类型名称
func (k Kind) String() string {
	switch k {
	case KindRelocate:
		return "relocate"
	case KindSwap:
		return "swap"
	case KindTwoOpt:
		return "2-opt"
	case KindTwoOptStar:
		return "2-opt*"
	default:
		return "unknown"
	}
}

// Move 邻域移动
//
//   - relocate: 取出 R1[I]，插入 R2 的位置 J（同一路线时 J 为取出后的位置）
//   - swap: 交换 R1[I] 与 R2[J]
//   - 2-opt: 反转 R1[I..J]
//   - 2-opt*: R1 = R1[:I] + R2[J:]，R2 = R2[:J] + R1[I:]
type Move struct {
	Kind  Kind
	R1    int
	I     int
	R2    int
	J     int
	Delta float64 // 增广成本变化量
}

// Apply 返回移动后受影响的两条新路线（同一路线时第二条为 nil），不修改入参
func (m Move) Apply(routes [][]int) ([]int, []int) {
	r1 := routes[m.R1]
	switch m.Kind {
	case KindRelocate:
		u := r1[m.I]
		removed := make([]int, 0, len(r1))
		removed = append(removed, r1[:m.I]...)
		removed = append(removed, r1[m.I+1:]...)
		if m.R1 == m.R2 {
			return insertAt(removed, m.J, u), nil
		}
		return removed, insertAt(routes[m.R2], m.J, u)

	case KindSwap:
		if m.R1 == m.R2 {
			out := append([]int(nil), r1...)
			out[m.I], out[m.J] = out[m.J], out[m.I]
			return out, nil
		}
		a := append([]int(nil), r1...)
		b := append([]int(nil), routes[m.R2]...)
		a[m.I], b[m.J] = b[m.J], a[m.I]
		return a, b

	case KindTwoOpt:
		out := append([]int(nil), r1...)
		for i, j := m.I, m.J; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return out, nil

	case KindTwoOptStar:
		r2 := routes[m.R2]
		a := make([]int, 0, m.I+len(r2)-m.J)
		a = append(a, r1[:m.I]...)
		a = append(a, r2[m.J:]...)
		b := make([]int, 0, m.J+len(r1)-m.I)
		b = append(b, r2[:m.J]...)
		b = append(b, r1[m.I:]...)
		return a, b
	}
	return r1, nil
}

// ArcCost 增广弧成本
type ArcCost func(from, to int) float64

// task 一组从同一起点出发的移动，是评估与并行切分的最小单元
type task struct {
	kind Kind
	r1   int
	i    int
}

// buildTasks 按固定顺序列出当前方案的所有移动组
func buildTasks(plan *route.Plan) []task {
	var tasks []task
	for _, kind := range []Kind{KindRelocate, KindSwap, KindTwoOpt, KindTwoOptStar} {
		for v, r := range plan.Routes {
			last := len(r) - 1
			if kind == KindTwoOptStar {
				last = len(r)
			}
			for i := 0; i <= last; i++ {
				tasks = append(tasks, task{kind: kind, r1: v, i: i})
			}
		}
	}
	return tasks
}

// scanner 在一个移动组内寻找增量最小的可行移动
type scanner struct {
	rc   *route.Context
	plan *route.Plan
	arc  ArcCost
}

// node 扩展路径上的节点，越界视为仓库
func (s *scanner) node(r []int, k int) int {
	return s.rc.Node(r, k)
}

// nodeWithout 去掉位置 skip 后路线的第 k 个节点
func (s *scanner) nodeWithout(r []int, skip, k int) int {
	if k < 0 || k >= len(r)-1 {
		return s.rc.Depot
	}
	if k < skip {
		return r[k]
	}
	return r[k+1]
}

// feasible 检查移动后的路线
func (s *scanner) feasible(m Move) bool {
	a, b := m.Apply(s.plan.Routes)
	if !s.rc.Feasible(m.R1, a) {
		return false
	}
	return m.R1 == m.R2 || s.rc.Feasible(m.R2, b)
}

// scan 返回组内严格小于 bound 的最优可行移动；只有可能成为新最优的候选才做可行性检查
func (s *scanner) scan(t task, bound float64) (Move, bool) {
	best := Move{Delta: bound}
	found := false
	consider := func(m Move) {
		if m.Delta < best.Delta && s.feasible(m) {
			best = m
			found = true
		}
	}

	switch t.kind {
	case KindRelocate:
		s.relocate(t, consider)
	case KindSwap:
		s.swap(t, consider)
	case KindTwoOpt:
		s.twoOpt(t, consider)
	case KindTwoOptStar:
		s.twoOptStar(t, consider)
	}
	return best, found
}

func (s *scanner) relocate(t task, consider func(Move)) {
	r1 := s.plan.Routes[t.r1]
	u := r1[t.i]
	p, n := s.node(r1, t.i-1), s.node(r1, t.i+1)
	removal := s.arc(p, n) - s.arc(p, u) - s.arc(u, n)

	for v, r2 := range s.plan.Routes {
		if v == t.r1 {
			for j := 0; j < len(r1); j++ {
				if j == t.i {
					continue
				}
				q, w := s.nodeWithout(r1, t.i, j-1), s.nodeWithout(r1, t.i, j)
				consider(Move{
					Kind: KindRelocate, R1: t.r1, I: t.i, R2: v, J: j,
					Delta: removal + s.arc(q, u) + s.arc(u, w) - s.arc(q, w),
				})
			}
			continue
		}
		for j := 0; j <= len(r2); j++ {
			q, w := s.node(r2, j-1), s.node(r2, j)
			consider(Move{
				Kind: KindRelocate, R1: t.r1, I: t.i, R2: v, J: j,
				Delta: removal + s.arc(q, u) + s.arc(u, w) - s.arc(q, w),
			})
		}
	}
}

func (s *scanner) swap(t task, consider func(Move)) {
	r1 := s.plan.Routes[t.r1]
	u := r1[t.i]
	p1, n1 := s.node(r1, t.i-1), s.node(r1, t.i+1)

	// 路线内
	for j := t.i + 1; j < len(r1); j++ {
		v := r1[j]
		var delta float64
		if j == t.i+1 {
			n := s.node(r1, j+1)
			delta = s.arc(p1, v) + s.arc(v, u) + s.arc(u, n) -
				s.arc(p1, u) - s.arc(u, v) - s.arc(v, n)
		} else {
			p2, n2 := r1[j-1], s.node(r1, j+1)
			delta = s.arc(p1, v) + s.arc(v, n1) - s.arc(p1, u) - s.arc(u, n1) +
				s.arc(p2, u) + s.arc(u, n2) - s.arc(p2, v) - s.arc(v, n2)
		}
		consider(Move{Kind: KindSwap, R1: t.r1, I: t.i, R2: t.r1, J: j, Delta: delta})
	}

	// 路线间
	for r := t.r1 + 1; r < len(s.plan.Routes); r++ {
		r2 := s.plan.Routes[r]
		for j, v := range r2 {
			p2, n2 := s.node(r2, j-1), s.node(r2, j+1)
			delta := s.arc(p1, v) + s.arc(v, n1) - s.arc(p1, u) - s.arc(u, n1) +
				s.arc(p2, u) + s.arc(u, n2) - s.arc(p2, v) - s.arc(v, n2)
			consider(Move{Kind: KindSwap, R1: t.r1, I: t.i, R2: r, J: j, Delta: delta})
		}
	}
}

// twoOpt 成本不对称，片段内部的正反向成本随 j 增量累计
func (s *scanner) twoOpt(t task, consider func(Move)) {
	r := s.plan.Routes[t.r1]
	p := s.node(r, t.i-1)
	var forward, backward float64
	for j := t.i + 1; j < len(r); j++ {
		forward += s.arc(r[j-1], r[j])
		backward += s.arc(r[j], r[j-1])
		n := s.node(r, j+1)
		delta := s.arc(p, r[j]) + s.arc(r[t.i], n) - s.arc(p, r[t.i]) - s.arc(r[j], n) +
			backward - forward
		consider(Move{Kind: KindTwoOpt, R1: t.r1, I: t.i, R2: t.r1, J: j, Delta: delta})
	}
}

func (s *scanner) twoOptStar(t task, consider func(Move)) {
	r1 := s.plan.Routes[t.r1]
	p1, n1 := s.node(r1, t.i-1), s.node(r1, t.i)
	for r := t.r1 + 1; r < len(s.plan.Routes); r++ {
		r2 := s.plan.Routes[r]
		for j := 0; j <= len(r2); j++ {
			// 整体互换两条路线或保持原样，均不改变成本
			if (t.i == 0 && j == 0) || (t.i == len(r1) && j == len(r2)) {
				continue
			}
			p2, n2 := s.node(r2, j-1), s.node(r2, j)
			delta := s.arc(p1, n2) + s.arc(p2, n1) - s.arc(p1, n1) - s.arc(p2, n2)
			consider(Move{Kind: KindTwoOptStar, R1: t.r1, I: t.i, R2: r, J: j, Delta: delta})
		}
	}
}

// insertAt 返回在 pos 处插入 loc 后的新路线
func insertAt(r []int, pos, loc int) []int {
	out := make([]int, 0, len(r)+1)
	out = append(out, r[:pos]...)
	out = append(out, loc)
	return append(out, r[pos:]...)
}
