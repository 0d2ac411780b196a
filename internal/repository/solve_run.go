package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vrpsolver/vrpsolver/pkg/errors"
	"github.com/vrpsolver/vrpsolver/pkg/model"
)

// SolveRun 求解记录
type SolveRun struct {
	ID          uuid.UUID           `json:"id"`
	Variant     model.Variant       `json:"variant"`
	ProblemHash string              `json:"problem_hash"`
	Locations   int                 `json:"locations"`
	Vehicles    int                 `json:"vehicles"`
	Feasible    bool                `json:"feasible"`
	Objective   float64             `json:"objective"`
	StopReason  model.StopReason    `json:"stop_reason"`
	Iterations  int                 `json:"iterations"`
	Duration    time.Duration       `json:"duration"`
	Routes      []model.RouteResult `json:"routes"`
	Warnings    []string            `json:"warnings,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// NewSolveRun 由求解结果生成记录
func NewSolveRun(id uuid.UUID, hash string, p *model.RoutingProblem, res *model.SolutionResult) *SolveRun {
	run := &SolveRun{
		ID:          id,
		Variant:     res.Variant,
		ProblemHash: hash,
		Locations:   p.LocationCount(),
		Vehicles:    p.FleetSize(),
		Feasible:    res.Feasible,
		Objective:   res.Objective,
		Routes:      res.Routes,
		Warnings:    res.Warnings,
	}
	if res.Statistics != nil {
		run.StopReason = res.Statistics.StopReason
		run.Iterations = res.Statistics.Iterations
		run.Duration = res.Statistics.Duration
	}
	return run
}

// SolveRunRepositoryInterface 求解记录仓储接口
type SolveRunRepositoryInterface interface {
	Create(ctx context.Context, run *SolveRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*SolveRun, error)
	List(ctx context.Context, filter ListFilter) ([]*SolveRun, int, error)
	GetLatestByHash(ctx context.Context, hash string) (*SolveRun, error)
}

// SolveRunRepository 求解记录仓储实现
type SolveRunRepository struct {
	db DB
}

// NewSolveRunRepository 创建求解记录仓储
func NewSolveRunRepository(db DB) *SolveRunRepository {
	return &SolveRunRepository{db: db}
}

const solveRunColumns = `id, variant, problem_hash, locations, vehicles, feasible, objective,
			stop_reason, iterations, duration_ms, routes, warnings, created_at`

// Create 保存求解记录
func (r *SolveRunRepository) Create(ctx context.Context, run *SolveRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	routesJSON, err := json.Marshal(run.Routes)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "序列化路线失败")
	}
	var warningsJSON []byte
	if len(run.Warnings) > 0 {
		if warningsJSON, err = json.Marshal(run.Warnings); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "序列化警告失败")
		}
	}

	query := `
		INSERT INTO solve_runs (` + solveRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, string(run.Variant), run.ProblemHash, run.Locations, run.Vehicles, run.Feasible, run.Objective,
		string(run.StopReason), run.Iterations, run.Duration.Milliseconds(), routesJSON, warningsJSON, run.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存求解记录失败")
	}

	return nil
}

// GetByID 根据ID获取求解记录
func (r *SolveRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*SolveRun, error) {
	query := `SELECT ` + solveRunColumns + ` FROM solve_runs WHERE id = $1`
	return scanSolveRun(r.db.QueryRowContext(ctx, query, id))
}

// GetLatestByHash 获取同一问题最近一次求解记录
func (r *SolveRunRepository) GetLatestByHash(ctx context.Context, hash string) (*SolveRun, error) {
	query := `
		SELECT ` + solveRunColumns + `
		FROM solve_runs
		WHERE problem_hash = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanSolveRun(r.db.QueryRowContext(ctx, query, hash))
}

// List 列出求解记录，返回当前页与总数
func (r *SolveRunRepository) List(ctx context.Context, filter ListFilter) ([]*SolveRun, int, error) {
	whereClause, args := buildWhere(filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM solve_runs %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "统计求解记录失败")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM solve_runs %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, solveRunColumns, whereClause, filter.direction(), len(args)+1, len(args)+2)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询求解记录失败")
	}
	defer rows.Close()

	var runs []*SolveRun
	for rows.Next() {
		run, err := scanSolveRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "遍历求解记录失败")
	}

	return runs, total, nil
}

// buildWhere 根据过滤器生成条件与参数
func buildWhere(filter ListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Variant != "" {
		args = append(args, filter.Variant)
		conditions = append(conditions, fmt.Sprintf("variant = $%d", len(args)))
	}
	if filter.ProblemHash != "" {
		args = append(args, filter.ProblemHash)
		conditions = append(conditions, fmt.Sprintf("problem_hash = $%d", len(args)))
	}
	if filter.Feasible != nil {
		args = append(args, *filter.Feasible)
		conditions = append(conditions, fmt.Sprintf("feasible = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func scanSolveRun(s Scanner) (*SolveRun, error) {
	var (
		run        SolveRun
		variant    string
		stopReason string
		durationMs int64
		routes     []byte
		warnings   []byte
	)

	err := s.Scan(
		&run.ID, &variant, &run.ProblemHash, &run.Locations, &run.Vehicles, &run.Feasible, &run.Objective,
		&stopReason, &run.Iterations, &durationMs, &routes, &warnings, &run.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, "求解记录不存在")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取求解记录失败")
	}

	run.Variant = model.Variant(variant)
	run.StopReason = model.StopReason(stopReason)
	run.Duration = time.Duration(durationMs) * time.Millisecond

	if err := json.Unmarshal(routes, &run.Routes); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "解析路线失败")
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "解析警告失败")
		}
	}

	return &run, nil
}
