package engine

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrpsolver/vrpsolver/pkg/errors"
	"github.com/vrpsolver/vrpsolver/pkg/logger"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/matrix"
)

func quietEngine(opts ...Option) *Engine {
	base := []Option{WithLogger(logger.NewSolverLoggerFrom(zerolog.Nop())), WithStallLimit(100)}
	return New(append(base, opts...)...)
}

// squareProblem 仓库在原点，四个客户位于矩形四角，欧氏距离取整
func squareProblem(capacity int64, number int) *model.RoutingProblem {
	vertices := []model.Coordinates{{0, 0}, {3, 4}, {-3, 4}, {-3, -4}, {3, -4}}
	return &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: capacity, Number: number}},
		Vertices:     vertices,
		Edges:        model.EuclideanEdges(vertices, true),
		DepotIndices: []int{0},
		Demands:      []int64{0, 10, 10, 10, 10},
	}
}

// gridProblem 12 个客户的确定性实例
func gridProblem() *model.RoutingProblem {
	vertices := []model.Coordinates{{0, 0}}
	demands := []int64{0}
	for i := 1; i <= 12; i++ {
		vertices = append(vertices, model.Coordinates{X: float64(i*37%23 - 11), Y: float64(i*17%19 - 9)})
		demands = append(demands, int64(i*7%9)+1)
	}
	return &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: 15, Number: 8}},
		Vertices:     vertices,
		Edges:        model.EuclideanEdges(vertices, true),
		DepotIndices: []int{0},
		Demands:      demands,
	}
}

// assertValidSolution 覆盖、载重与路线成本复核
func assertValidSolution(t *testing.T, p *model.RoutingProblem, res *model.SolutionResult) {
	t.Helper()
	require.True(t, res.Feasible)

	m, err := matrix.Build(p.LocationCount(), p.Edges)
	require.NoError(t, err)
	limits := p.FleetLimits()

	seen := map[int]int{}
	var objective float64
	for _, r := range res.Routes {
		var load int64
		for _, loc := range r.Visits {
			seen[loc]++
			load += p.DemandOf(loc)
		}
		assert.Equal(t, load, r.Load)
		assert.LessOrEqual(t, load, limits[r.Vehicle], "vehicle %d overloaded", r.Vehicle)

		path := append(append([]int{p.Depot()}, r.Visits...), p.Depot())
		assert.InDelta(t, matrix.Unscale(m.PathCost(path)), r.Cost, 1e-9)
		objective += r.Cost
	}
	for _, c := range p.Customers() {
		assert.Equal(t, 1, seen[c], "customer %d must be visited exactly once", c)
	}
	assert.InDelta(t, objective, res.Objective, 1e-6)
}

func TestSolve_SingleRoute(t *testing.T) {
	p := squareProblem(50, 1)
	res, err := quietEngine().Solve(context.Background(), p, model.VariantCapacitated, 5*time.Second)
	require.NoError(t, err)

	assertValidSolution(t, p, res)
	require.Len(t, res.Routes, 1)
	assert.Len(t, res.Routes[0].Visits, 4)
	assert.Equal(t, int64(40), res.Routes[0].Load)
	assert.InDelta(t, 30.0, res.Objective, 1e-9)
	assert.Equal(t, model.StatusSolved, res.Status)
	require.NotNil(t, res.Statistics)
	assert.Equal(t, model.StopStall, res.Statistics.StopReason)
	assert.False(t, res.Statistics.BudgetExhausted)
	assert.Empty(t, res.Warnings)
}

func TestSolve_SplitsRoutesByCapacity(t *testing.T) {
	p := squareProblem(15, 4)
	res, err := quietEngine().Solve(context.Background(), p, model.VariantCapacitated, 5*time.Second)
	require.NoError(t, err)

	assertValidSolution(t, p, res)
	assert.GreaterOrEqual(t, len(res.Routes), 2)
	for _, r := range res.Routes {
		assert.LessOrEqual(t, r.Load, int64(15))
	}
	assert.InDelta(t, 40.0, res.Objective, 1e-9)
}

func TestSolve_UnreachableWindow(t *testing.T) {
	p := &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: 1000, Number: 2}},
		Vertices:     make([]model.Coordinates, 3),
		DepotIndices: []int{0},
		TimeWindows:  []model.TimeWindow{{Earliest: 0, Latest: 1000}, {Earliest: 0, Latest: 10}, {Earliest: 50, Latest: 60}},
		Edges: []model.Edge{
			{From: 0, To: 1, Cost: 5}, {From: 1, To: 0, Cost: 5},
			{From: 0, To: 2, Cost: 100}, {From: 2, To: 0, Cost: 100},
		},
	}

	res, err := quietEngine().Solve(context.Background(), p, model.VariantTimeWindowed, time.Second)
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.Equal(t, model.StatusInfeasible, res.Status)
	assert.Empty(t, res.Routes)
	assert.Equal(t, float64(model.InfeasibleObjective), res.Objective)
	assert.Equal(t, model.StopInfeasible, res.Statistics.StopReason)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], string(errors.CodeNoFeasibleSolution))
}

func TestSolve_TimeWindowed(t *testing.T) {
	p := &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: 100, Number: 2}},
		Vertices:     []model.Coordinates{{0, 0}, {5, 0}, {10, 0}, {0, 8}},
		DepotIndices: []int{0},
		TimeWindows: []model.TimeWindow{
			{Earliest: 0, Latest: 200},
			{Earliest: 0, Latest: 20},
			{Earliest: 10, Latest: 40},
			{Earliest: 30, Latest: 60},
		},
	}
	p.Edges = model.EuclideanEdges(p.Vertices, true)

	res, err := quietEngine().Solve(context.Background(), p, model.VariantTimeWindowed, time.Second)
	require.NoError(t, err)
	require.True(t, res.Feasible)

	visited := 0
	for _, r := range res.Routes {
		require.Len(t, r.Arrivals, len(r.Visits))
		for k, loc := range r.Visits {
			w := p.TimeWindows[loc]
			assert.GreaterOrEqual(t, r.Arrivals[k], float64(w.Earliest), "location %d", loc)
			assert.LessOrEqual(t, r.Arrivals[k], float64(w.Latest), "location %d", loc)
		}
		assert.LessOrEqual(t, r.Cost, 100.0)
		visited += len(r.Visits)
	}
	assert.Equal(t, 3, visited)
}

func TestSolve_DepotOnly(t *testing.T) {
	p := &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: 50, Number: 1}},
		Vertices:     []model.Coordinates{{0, 0}},
		DepotIndices: []int{0},
		Demands:      []int64{0},
	}
	res, err := quietEngine().Solve(context.Background(), p, model.VariantCapacitated, time.Second)
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.Empty(t, res.Routes)
	assert.Zero(t, res.Objective)
	assert.Equal(t, model.StopNoCustomers, res.Statistics.StopReason)
}

func TestSolve_OversizeDemand(t *testing.T) {
	p := squareProblem(50, 2)
	p.Demands[3] = 60

	res, err := quietEngine().Solve(context.Background(), p, model.VariantCapacitated, time.Second)
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.Empty(t, res.Routes)
	assert.Equal(t, float64(model.InfeasibleObjective), res.Objective)
}

func TestSolve_ValidationErrors(t *testing.T) {
	p := &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: 50, Number: 1}},
		Vertices:     make([]model.Coordinates, 2),
		DepotIndices: []int{0},
		TimeWindows:  []model.TimeWindow{{Earliest: 0, Latest: 100}, {Earliest: 30, Latest: 20}},
		Edges:        []model.Edge{{From: 0, To: 1, Cost: 1}, {From: 1, To: 0, Cost: 1}},
	}
	_, err := quietEngine().Solve(context.Background(), p, model.VariantTimeWindowed, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeValidationFail))
	assert.Equal(t, "time_windows[1]", errors.FieldOf(err))

	p.TimeWindows[1] = model.TimeWindow{Earliest: 0, Latest: 100}
	p.Edges = append(p.Edges, model.Edge{From: 0, To: 5, Cost: 1})
	_, err = quietEngine().Solve(context.Background(), p, model.VariantTimeWindowed, time.Second)
	assert.True(t, errors.Is(err, errors.CodeMalformedEdge))

	_, err = quietEngine().Solve(context.Background(), nil, model.VariantCapacitated, time.Second)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestSolve_Deterministic(t *testing.T) {
	p := gridProblem()
	first, err := quietEngine().Solve(context.Background(), p, model.VariantCapacitated, 10*time.Second)
	require.NoError(t, err)
	assertValidSolution(t, p, first)
	require.True(t, first.Statistics.StopReason.Deterministic())

	for _, workers := range []int{1, 3} {
		again, err := quietEngine(WithWorkers(workers)).Solve(context.Background(), p, model.VariantCapacitated, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, first.Objective, again.Objective, "workers=%d", workers)
		assert.Equal(t, first.Visits(), again.Visits(), "workers=%d", workers)
		assert.Equal(t, first.Statistics.Iterations, again.Statistics.Iterations, "workers=%d", workers)
	}
}

func TestSolve_ImprovesConstruction(t *testing.T) {
	p := gridProblem()
	res, err := quietEngine(WithStallLimit(300)).Solve(context.Background(), p, model.VariantCapacitated, 10*time.Second)
	require.NoError(t, err)
	assertValidSolution(t, p, res)
	assert.LessOrEqual(t, res.Objective, res.Statistics.InitialObjective)
}

func TestSolve_BudgetExhausted(t *testing.T) {
	p := gridProblem()
	res, err := quietEngine(WithStallLimit(0)).Solve(context.Background(), p, model.VariantCapacitated, 50*time.Millisecond)
	require.NoError(t, err)

	assertValidSolution(t, p, res)
	assert.Equal(t, model.StopBudget, res.Statistics.StopReason)
	assert.True(t, res.Statistics.BudgetExhausted)
	assert.Contains(t, res.Warnings, string(errors.CodeTimeBudgetExceeded))
}

func TestSolve_IterationLimit(t *testing.T) {
	res, err := quietEngine(WithMaxIterations(5), WithStallLimit(0)).
		Solve(context.Background(), gridProblem(), model.VariantCapacitated, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.StopIterationLimit, res.Statistics.StopReason)
	assert.Equal(t, 5, res.Statistics.Iterations)
}

func TestSolve_CancelledBeforePlan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietEngine().Solve(ctx, squareProblem(50, 1), model.VariantCapacitated, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeTimeout))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolve_IgnoresSecondaryDepots(t *testing.T) {
	p := squareProblem(50, 1)
	p.DepotIndices = []int{0, 2}
	p.Demands[2] = 0

	res, err := quietEngine().Solve(context.Background(), p, model.VariantCapacitated, time.Second)
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)
	assert.NotContains(t, res.Routes[0].Visits, 2)
	assert.Len(t, res.Routes[0].Visits, 3)
}

type recordingTracer struct {
	mu     sync.Mutex
	phases []Phase
	moves  int
}

func (r *recordingTracer) OnPhase(e PhaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, e.To)
}

func (r *recordingTracer) OnMove(MoveEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves++
}

func TestSolve_TracerPhases(t *testing.T) {
	tracer := &recordingTracer{}
	res, err := quietEngine(WithTracer(tracer)).Solve(context.Background(), squareProblem(50, 1), model.VariantCapacitated, time.Second)
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseConstruction, PhaseImproving, PhaseDone}, tracer.phases)
	assert.Equal(t, res.Statistics.Iterations, tracer.moves)

	infeasible := &recordingTracer{}
	p := squareProblem(50, 1)
	p.Demands[1] = 51
	_, err = quietEngine(WithTracer(infeasible)).Solve(context.Background(), p, model.VariantCapacitated, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseConstruction, PhaseInfeasible}, infeasible.phases)
}

func TestLogTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewLogTracer(zerolog.New(&buf).Level(zerolog.DebugLevel), 0)

	tracer.OnPhase(PhaseEvent{From: PhaseConstruction, To: PhaseImproving, Objective: 3000})
	tracer.OnMove(MoveEvent{Iteration: 1, Kind: "relocate"})
	tracer.OnMove(MoveEvent{Iteration: 2, Kind: "swap", Improved: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "throttled moves are dropped, improvements are always logged")
	assert.Contains(t, lines[0], `"to":"IMPROVING"`)
	assert.Contains(t, lines[1], `"kind":"swap"`)
	assert.Contains(t, lines[1], `"component":"tracer"`)
}

func TestPackageSolve_DefaultBudget(t *testing.T) {
	assert.Equal(t, 10*time.Second, DefaultBudget(model.VariantCapacitated))
	assert.Equal(t, time.Second, DefaultBudget(model.VariantTimeWindowed))

	p := &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: 50, Number: 1}},
		Vertices:     []model.Coordinates{{0, 0}},
		DepotIndices: []int{0},
		Demands:      []int64{0},
	}
	res, err := Solve(context.Background(), p, model.VariantCapacitated, 0)
	require.NoError(t, err)
	assert.True(t, res.Feasible)
}
