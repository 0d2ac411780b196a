package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/dimension"
	"github.com/vrpsolver/vrpsolver/pkg/routing/matrix"
	"github.com/vrpsolver/vrpsolver/pkg/routing/route"
	"github.com/vrpsolver/vrpsolver/pkg/routing/solver"
)

// asymmetricContext 7 个地点的非对称成本矩阵，无约束维度
func asymmetricContext(vehicles int) *route.Context {
	n := 7
	rows := make([][]int64, n)
	for i := range rows {
		rows[i] = make([]int64, n)
		for j := range rows[i] {
			if i != j {
				rows[i][j] = int64((i*7+j*13)%17+1) * 100
			}
		}
	}
	return route.NewContext(matrix.FromRows(rows), dimension.NewSet(), 0, vehicles, []int{1, 2, 3, 4, 5, 6})
}

func samplePlan() *route.Plan {
	return &route.Plan{Routes: [][]int{{1, 2, 3}, {4, 5}, nil, {6}}}
}

func TestMove_DeltaMatchesCost(t *testing.T) {
	rc := asymmetricContext(4)
	plan := samplePlan()
	before := plan.Cost(rc)

	s := &scanner{rc: rc, plan: plan, arc: func(from, to int) float64 { return float64(rc.Arc(from, to)) }}
	checked := map[Kind]int{}
	for _, tk := range buildTasks(plan) {
		collect := func(m Move) {
			a, b := m.Apply(plan.Routes)
			after := plan.Clone()
			after.Routes[m.R1] = a
			if m.R2 != m.R1 {
				after.Routes[m.R2] = b
			}
			require.Equal(t, 6, after.Visited(), "%s move lost a customer: %+v", m.Kind, m)
			assert.InDelta(t, float64(after.Cost(rc)-before), m.Delta, 1e-6, "%s move %+v", m.Kind, m)
			checked[m.Kind]++
		}
		switch tk.kind {
		case KindRelocate:
			s.relocate(tk, collect)
		case KindSwap:
			s.swap(tk, collect)
		case KindTwoOpt:
			s.twoOpt(tk, collect)
		case KindTwoOptStar:
			s.twoOptStar(tk, collect)
		}
	}

	for _, k := range []Kind{KindRelocate, KindSwap, KindTwoOpt, KindTwoOptStar} {
		assert.Positive(t, checked[k], "no %s moves enumerated", k)
	}
}

func TestMove_Apply(t *testing.T) {
	routes := [][]int{{1, 2, 3}, {4, 5}}

	tests := []struct {
		name string
		move Move
		r1   []int
		r2   []int
	}{
		{"路线内移动", Move{Kind: KindRelocate, R1: 0, I: 0, R2: 0, J: 2}, []int{2, 3, 1}, nil},
		{"路线间移动", Move{Kind: KindRelocate, R1: 0, I: 1, R2: 1, J: 1}, []int{1, 3}, []int{4, 2, 5}},
		{"路线内交换", Move{Kind: KindSwap, R1: 0, I: 0, R2: 0, J: 2}, []int{3, 2, 1}, nil},
		{"路线间交换", Move{Kind: KindSwap, R1: 0, I: 2, R2: 1, J: 0}, []int{1, 2, 4}, []int{3, 5}},
		{"片段反转", Move{Kind: KindTwoOpt, R1: 0, I: 0, R2: 0, J: 1}, []int{2, 1, 3}, nil},
		{"尾段交换", Move{Kind: KindTwoOptStar, R1: 0, I: 1, R2: 1, J: 1}, []int{1, 5}, []int{4, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r1, r2 := tt.move.Apply(routes)
			assert.Equal(t, tt.r1, r1)
			if tt.r2 == nil {
				assert.Nil(t, r2)
			} else {
				assert.Equal(t, tt.r2, r2)
			}
		})
	}
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5}}, routes, "Apply must not mutate its input")
}

func TestGuidedLocalSearch_Improves(t *testing.T) {
	rc := asymmetricContext(4)
	initial := samplePlan()

	cfg := DefaultConfig()
	cfg.StallLimit = 200
	result, err := NewGuidedLocalSearch(cfg).Optimize(context.Background(), rc, initial)
	require.NoError(t, err)

	assert.Equal(t, initial.Cost(rc), result.InitialCost)
	assert.Less(t, result.Cost, result.InitialCost)
	assert.Equal(t, result.Plan.Cost(rc), result.Cost)
	assert.Equal(t, 6, result.Plan.Visited())
	assert.Equal(t, model.StopStall, result.StopReason)
	assert.Positive(t, result.Penalizations)
	assert.Positive(t, result.Lambda)
	assert.True(t, samplePlan().Equal(initial), "initial plan must not be modified")
}

func TestGuidedLocalSearch_NoImprovementWithoutLambda(t *testing.T) {
	rc := asymmetricContext(4)
	cfg := DefaultConfig()
	cfg.LambdaCoefficient = 0

	result, err := NewGuidedLocalSearch(cfg).Optimize(context.Background(), rc, samplePlan())
	require.NoError(t, err)
	assert.Equal(t, model.StopNoImprovement, result.StopReason)
	assert.Zero(t, result.Penalizations)
}

func TestGuidedLocalSearch_IterationLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 3

	var events []MoveEvent
	cfg.OnMove = func(e MoveEvent) { events = append(events, e) }

	result, err := NewGuidedLocalSearch(cfg).Optimize(context.Background(), asymmetricContext(4), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, model.StopIterationLimit, result.StopReason)
	assert.Equal(t, 3, result.Iterations)
	require.Len(t, events, 3)
	assert.Equal(t, 1, events[0].Iteration)
	for _, e := range events {
		assert.LessOrEqual(t, e.BestCost, e.Cost)
	}
}

func TestGuidedLocalSearch_Deadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StallLimit = 0
	cfg.Deadline = time.Now().Add(50 * time.Millisecond)

	result, err := NewGuidedLocalSearch(cfg).Optimize(context.Background(), asymmetricContext(4), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, model.StopBudget, result.StopReason)
}

func TestGuidedLocalSearch_CancelledKeepsBest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := asymmetricContext(4)
	result, err := NewGuidedLocalSearch(DefaultConfig()).Optimize(ctx, rc, samplePlan())
	require.NoError(t, err)
	assert.Equal(t, model.StopCancelled, result.StopReason)
	assert.Equal(t, 6, result.Plan.Visited())
	assert.LessOrEqual(t, result.Cost, result.InitialCost)
}

func TestGuidedLocalSearch_RespectsDimensions(t *testing.T) {
	vertices := []model.Coordinates{{0, 0}, {3, 4}, {-3, 4}, {-3, -4}, {3, -4}, {1, 1}}
	m, err := matrix.Build(len(vertices), model.EuclideanEdges(vertices, false))
	require.NoError(t, err)
	dims := dimension.NewSet(dimension.NewCapacity([]int64{0, 10, 10, 10, 10, 10}, []int64{20, 20, 20}))
	rc := route.NewContext(m, dims, 0, 3, []int{1, 2, 3, 4, 5})

	initial, err := solver.NewCheapestInsertion(nil).Construct(context.Background(), rc)
	require.NoError(t, err)
	require.True(t, initial.Feasible)

	cfg := DefaultConfig()
	cfg.StallLimit = 300
	result, err := NewGuidedLocalSearch(cfg).Optimize(context.Background(), rc, initial.Plan)
	require.NoError(t, err)
	assert.True(t, result.Plan.Feasible(rc))
	assert.LessOrEqual(t, result.Cost, initial.Cost)
}

func TestGuidedLocalSearch_ParallelMatchesSequential(t *testing.T) {
	rc := asymmetricContext(4)

	run := func(workers int) *Result {
		cfg := DefaultConfig()
		cfg.StallLimit = 100
		cfg.Workers = workers
		result, err := NewGuidedLocalSearch(cfg).Optimize(context.Background(), rc, samplePlan())
		require.NoError(t, err)
		return result
	}

	sequential := run(1)
	for _, workers := range []int{2, 4} {
		parallel := run(workers)
		assert.Equal(t, sequential.Cost, parallel.Cost, "workers=%d", workers)
		assert.Equal(t, sequential.Iterations, parallel.Iterations, "workers=%d", workers)
		assert.True(t, sequential.Plan.Equal(parallel.Plan), "workers=%d", workers)
	}
}
