package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrpsolver/vrpsolver/pkg/errors"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/dimension"
	"github.com/vrpsolver/vrpsolver/pkg/routing/matrix"
)

func squareInput(t *testing.T, capacity int64, vehicles int) Input {
	t.Helper()
	vertices := []model.Coordinates{{0, 0}, {3, 4}, {-3, 4}, {-3, -4}, {3, -4}}
	p := &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: capacity, Number: vehicles}},
		Vertices:     vertices,
		Edges:        model.EuclideanEdges(vertices, true),
		DepotIndices: []int{0},
		Demands:      []int64{0, 10, 10, 10, 10},
	}
	m, err := matrix.Build(len(vertices), p.Edges)
	require.NoError(t, err)
	return Input{Problem: p, Variant: model.VariantCapacitated, Matrix: m}
}

func TestExtract_Capacitated(t *testing.T) {
	in := squareInput(t, 50, 2)
	in.Routes = [][]int{nil, {4, 3, 2, 1}}

	res, err := Extract(in)
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.Equal(t, model.StatusSolved, res.Status)
	require.Len(t, res.Routes, 1, "empty routes are skipped")
	assert.Equal(t, 1, res.Routes[0].Vehicle)
	assert.Equal(t, []int{4, 3, 2, 1}, res.Routes[0].Visits)
	assert.Equal(t, int64(40), res.Routes[0].Load)
	assert.InDelta(t, 30.0, res.Routes[0].Cost, 1e-9)
	assert.InDelta(t, 30.0, res.Objective, 1e-9)
	assert.Equal(t, int64(40), res.TotalLoad)
	assert.Empty(t, res.Routes[0].Arrivals)
}

func TestExtract_Empty(t *testing.T) {
	p := &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: 50, Number: 1}},
		Vertices:     []model.Coordinates{{0, 0}},
		DepotIndices: []int{0},
		Demands:      []int64{0},
	}
	m, err := matrix.Build(1, nil)
	require.NoError(t, err)

	res, err := Extract(Input{Problem: p, Variant: model.VariantCapacitated, Matrix: m, Routes: [][]int{nil}})
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.Empty(t, res.Routes)
	assert.Zero(t, res.Objective)
}

func TestExtract_ConsistencyFaults(t *testing.T) {
	tests := []struct {
		name     string
		capacity int64
		routes   [][]int
		mutate   func(in *Input)
	}{
		{name: "重复访问", capacity: 50, routes: [][]int{{1, 2, 3, 4}, {1}}},
		{name: "漏访", capacity: 50, routes: [][]int{{1, 2, 3}, nil}},
		{name: "路线含仓库", capacity: 50, routes: [][]int{{1, 0, 2}, {3, 4}}},
		{name: "超载", capacity: 30, routes: [][]int{{1, 2, 3, 4}, nil}},
		{name: "车辆越界", capacity: 50, routes: [][]int{{1}, {2}, {3, 4}}},
		{name: "地点越界", capacity: 50, routes: [][]int{{1, 2, 3, 4, 9}, nil}},
		{
			name:     "弧不可达",
			capacity: 50,
			routes:   [][]int{{1, 2, 3, 4}, nil},
			mutate: func(in *Input) {
				in.Matrix = matrix.FromRows([][]int64{
					{0, 500, 500, 500, 500},
					{500, 0, matrix.Infeasible, 1000, 800},
					{500, 600, 0, 800, 1000},
					{500, 1000, 800, 0, 600},
					{500, 800, 1000, 600, 0},
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := squareInput(t, tt.capacity, 2)
			in.Routes = tt.routes
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			res, err := Extract(in)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, errors.CodeInternalConsistency), "got %v", err)
		})
	}
}

func timeInput(t *testing.T, windows []model.TimeWindow, limit int64) Input {
	t.Helper()
	p := &model.RoutingProblem{
		Vehicles:     []model.VehicleType{{Capacity: limit, Number: 1}},
		Vertices:     make([]model.Coordinates, 3),
		DepotIndices: []int{0},
		TimeWindows:  windows,
		Edges: []model.Edge{
			{From: 0, To: 1, Cost: 5}, {From: 1, To: 0, Cost: 5},
			{From: 0, To: 2, Cost: 10}, {From: 2, To: 0, Cost: 10},
			{From: 1, To: 2, Cost: 7}, {From: 2, To: 1, Cost: 7},
		},
	}
	m, err := matrix.Build(3, p.Edges)
	require.NoError(t, err)
	return Input{Problem: p, Variant: model.VariantTimeWindowed, Matrix: m, Time: dimension.DefaultTimeSettings()}
}

func TestExtract_TimeWindowed(t *testing.T) {
	in := timeInput(t, []model.TimeWindow{{0, 100}, {5, 10}, {14, 20}}, 100)
	in.Routes = [][]int{{1, 2}}

	res, err := Extract(in)
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)
	assert.Equal(t, []float64{5, 14}, res.Routes[0].Arrivals)
	assert.InDelta(t, 22.0, res.Routes[0].Cost, 1e-9)
	assert.InDelta(t, 22.0, res.Objective, 1e-9)
	assert.Zero(t, res.TotalLoad, "demands are optional for time windows")
}

func TestExtract_ArrivalsHonourDownstreamWindows(t *testing.T) {
	// 到达 1 后最多等待 30，为赶上 2 的窗口 [60,70] 必须晚到 1
	in := timeInput(t, []model.TimeWindow{{0, 100}, {0, 100}, {60, 70}}, 100)
	in.Routes = [][]int{{1, 2}}

	res, err := Extract(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{23, 60}, res.Routes[0].Arrivals)
}

func TestExtract_TimeFaults(t *testing.T) {
	in := timeInput(t, []model.TimeWindow{{0, 100}, {5, 10}, {14, 20}}, 100)
	in.Routes = [][]int{{2, 1}}
	_, err := Extract(in)
	assert.True(t, errors.Is(err, errors.CodeInternalConsistency), "missed window: %v", err)

	in = timeInput(t, []model.TimeWindow{{0, 100}, {0, 100}, {0, 100}}, 21)
	in.Routes = [][]int{{1, 2}}
	_, err = Extract(in)
	assert.True(t, errors.Is(err, errors.CodeInternalConsistency), "travel limit: %v", err)
}
