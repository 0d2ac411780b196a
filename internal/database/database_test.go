package database

import (
	"strings"
	"testing"
	"time"
)

func TestTruncateQuery(t *testing.T) {
	short := "SELECT 1"
	if got := truncateQuery(short); got != short {
		t.Errorf("短查询不应截断, got %q", got)
	}

	long := strings.Repeat("x", 250)
	got := truncateQuery(long)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("长查询应截断为 200 字符加省略号, got len %d", len(got))
	}
}

func TestIsSlow(t *testing.T) {
	tests := []struct {
		name      string
		duration  time.Duration
		threshold time.Duration
		want      bool
	}{
		{"超过阈值", 150 * time.Millisecond, 100 * time.Millisecond, true},
		{"未超过阈值", 50 * time.Millisecond, 100 * time.Millisecond, false},
		{"阈值关闭", time.Hour, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSlow(tt.duration, tt.threshold); got != tt.want {
				t.Errorf("isSlow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMigrationsCreateSolveRuns(t *testing.T) {
	if len(migrations) == 0 || !strings.Contains(migrations[0], "solve_runs") {
		t.Fatal("首个迁移应创建 solve_runs 表")
	}
	for i, stmt := range migrations {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("迁移 #%d 应可重复执行", i)
		}
	}
}
