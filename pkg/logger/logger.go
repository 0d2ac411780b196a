// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

type ctxKey string

const (
	// RequestIDKey 上下文中的请求ID
	RequestIDKey ctxKey = "request_id"
	// RunIDKey 上下文中的求解运行ID
	RunIDKey ctxKey = "run_id"
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stdout":
			output = os.Stdout
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stderr
				}
			} else {
				output = os.Stderr
			}
		default:
			// 结果 JSON 写到 stdout，日志默认走 stderr
			output = os.Stderr
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}

	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		l = l.With().Str("run_id", runID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// SolverLogger 求解引擎专用日志器
type SolverLogger struct {
	base *zerolog.Logger
}

// NewSolverLogger 创建求解引擎日志器
func NewSolverLogger() *SolverLogger {
	l := Get().With().Str("component", "solver").Logger()
	return &SolverLogger{base: &l}
}

// NewSolverLoggerFrom 基于已有日志器创建（测试或自定义输出时使用）
func NewSolverLoggerFrom(base zerolog.Logger) *SolverLogger {
	l := base.With().Str("component", "solver").Logger()
	return &SolverLogger{base: &l}
}

// Base 返回底层日志器
func (l *SolverLogger) Base() *zerolog.Logger {
	return l.base
}

// StartSolve 记录求解开始
func (l *SolverLogger) StartSolve(variant string, locations, vehicles int, budget time.Duration) {
	l.base.Info().
		Str("variant", variant).
		Int("locations", locations).
		Int("vehicles", vehicles).
		Dur("budget", budget).
		Msg("开始求解")
}

// PhaseTransition 记录阶段切换
func (l *SolverLogger) PhaseTransition(from, to string, objective int64) {
	l.base.Debug().
		Str("from", from).
		Str("to", to).
		Int64("objective", objective).
		Msg("阶段切换")
}

// Infeasible 记录无可行解
func (l *SolverLogger) Infeasible(location int, reason string) {
	l.base.Warn().
		Int("location", location).
		Str("reason", reason).
		Msg("构造阶段无可行插入")
}

// BudgetExhausted 记录时间预算耗尽
func (l *SolverLogger) BudgetExhausted(iterations int, budget time.Duration) {
	l.base.Warn().
		Int("iterations", iterations).
		Dur("budget", budget).
		Msg("改进阶段被时间预算截断")
}

// ConsistencyFault 记录复核失败
func (l *SolverLogger) ConsistencyFault(err error) {
	l.base.Error().
		Err(err).
		Msg("解复核失败，可能存在约束传播缺陷")
}

// SolveComplete 记录求解完成
func (l *SolverLogger) SolveComplete(duration time.Duration, objective float64, routes int, stopReason string) {
	l.base.Info().
		Dur("duration", duration).
		Float64("objective", objective).
		Int("routes", routes).
		Str("stop_reason", stopReason).
		Msg("求解完成")
}
