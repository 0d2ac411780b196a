package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrpsolver/vrpsolver/pkg/errors"
	"github.com/vrpsolver/vrpsolver/pkg/model"
)

type execCall struct {
	query string
	args  []interface{}
}

// fakeDB 只记录写操作
type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: query, args: args})
	return nil, f.err
}

func (f *fakeDB) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, stderrors.New("not supported")
}

func (f *fakeDB) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

// fakeRow 按列顺序写入扫描目标
type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if r.values[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func sampleRun() *SolveRun {
	p := &model.RoutingProblem{
		Vehicles: []model.VehicleType{{Capacity: 50, Number: 2}},
		Vertices: make([]model.Coordinates, 5),
	}
	res := &model.SolutionResult{
		Variant:   model.VariantCapacitated,
		Routes:    []model.RouteResult{{Vehicle: 0, Visits: []int{4, 3, 2, 1}, Cost: 30, Load: 40}},
		Objective: 30,
		Feasible:  true,
		Warnings:  []string{"TIME_BUDGET_EXCEEDED"},
		Statistics: &model.SearchStatistics{
			Iterations: 120,
			StopReason: model.StopBudget,
			Duration:   1500 * time.Millisecond,
		},
	}
	return NewSolveRun(uuid.Nil, strings.Repeat("a", 64), p, res)
}

func TestNewSolveRun(t *testing.T) {
	run := sampleRun()
	assert.Equal(t, 5, run.Locations)
	assert.Equal(t, 2, run.Vehicles)
	assert.Equal(t, model.StopBudget, run.StopReason)
	assert.Equal(t, 120, run.Iterations)
	assert.Equal(t, 1500*time.Millisecond, run.Duration)
}

func TestSolveRunRepository_Create(t *testing.T) {
	db := &fakeDB{}
	repo := NewSolveRunRepository(db)
	run := sampleRun()

	require.NoError(t, repo.Create(context.Background(), run))
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	require.Len(t, db.calls, 1)
	call := db.calls[0]
	assert.Contains(t, call.query, "INSERT INTO solve_runs")
	require.Len(t, call.args, 13)
	assert.Equal(t, run.ID, call.args[0])
	assert.Equal(t, "cvrp", call.args[1])
	assert.Equal(t, "budget", call.args[7])
	assert.Equal(t, int64(1500), call.args[9])
	assert.JSONEq(t, `[{"vehicle":0,"visits":[4,3,2,1],"cost":30,"load":40}]`, string(call.args[10].([]byte)))
	assert.JSONEq(t, `["TIME_BUDGET_EXCEEDED"]`, string(call.args[11].([]byte)))
}

func TestSolveRunRepository_CreateError(t *testing.T) {
	repo := NewSolveRunRepository(&fakeDB{err: stderrors.New("connection refused")})
	err := repo.Create(context.Background(), sampleRun())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeDatabaseError))
}

func TestScanSolveRun(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	routes, _ := json.Marshal([]model.RouteResult{{Vehicle: 1, Visits: []int{2}, Cost: 10, Load: 5}})

	run, err := scanSolveRun(fakeRow{values: []interface{}{
		id, "twvrp", "hash", 3, 2, true, 10.0,
		"stall", 42, int64(250), routes, nil, created,
	}})
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, model.VariantTimeWindowed, run.Variant)
	assert.Equal(t, model.StopStall, run.StopReason)
	assert.Equal(t, 250*time.Millisecond, run.Duration)
	assert.Equal(t, []int{2}, run.Routes[0].Visits)
	assert.Empty(t, run.Warnings)
	assert.Equal(t, created, run.CreatedAt)
}

func TestScanSolveRun_Errors(t *testing.T) {
	_, err := scanSolveRun(fakeRow{err: sql.ErrNoRows})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = scanSolveRun(fakeRow{err: stderrors.New("boom")})
	assert.True(t, errors.Is(err, errors.CodeDatabaseError))
}

func TestBuildWhere(t *testing.T) {
	tests := []struct {
		name   string
		filter ListFilter
		where  string
		args   []interface{}
	}{
		{name: "无条件", filter: DefaultListFilter()},
		{
			name:   "按类型",
			filter: DefaultListFilter().WithVariant("cvrp"),
			where:  "WHERE variant = $1",
			args:   []interface{}{"cvrp"},
		},
		{
			name:   "组合条件",
			filter: ListFilter{Variant: "twvrp", ProblemHash: "h"}.WithFeasible(false),
			where:  "WHERE variant = $1 AND problem_hash = $2 AND feasible = $3",
			args:   []interface{}{"twvrp", "h", false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildWhere(tt.filter)
			assert.Equal(t, tt.where, where)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestListFilter_Direction(t *testing.T) {
	assert.Equal(t, "DESC", DefaultListFilter().direction())
	assert.Equal(t, "ASC", ListFilter{OrderDir: "asc"}.direction())
	assert.Equal(t, "DESC", ListFilter{OrderDir: "id; DROP TABLE solve_runs"}.direction())
	assert.Equal(t, 5, DefaultListFilter().WithLimit(5).WithOffset(10).Limit)
}
