// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vrpsolver/vrpsolver/pkg/logger"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"github.com/vrpsolver/vrpsolver/pkg/routing/dimension"
	"github.com/vrpsolver/vrpsolver/pkg/routing/engine"
	"github.com/vrpsolver/vrpsolver/pkg/routing/optimizer"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Log      logger.Config  `yaml:"log"`
	Solver   SolverConfig   `yaml:"solver"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

// SolverConfig 求解引擎配置
type SolverConfig struct {
	CVRPBudget          time.Duration `yaml:"cvrp_budget"`
	TWVRPBudget         time.Duration `yaml:"twvrp_budget"`
	StallLimit          int           `yaml:"stall_limit"`
	MaxIterations       int           `yaml:"max_iterations"`
	LambdaCoefficient   float64       `yaml:"lambda_coefficient"`
	Workers             int           `yaml:"workers"`
	MaxWait             int64         `yaml:"max_wait"`
	Horizon             int64         `yaml:"horizon"`
	BatchParallelism    int           `yaml:"batch_parallelism"`
	TraceMovesPerSecond float64       `yaml:"trace_moves_per_second"` // 0 表示不追踪迭代
}

// Budget 返回问题类型的时间预算
func (c *SolverConfig) Budget(v model.Variant) time.Duration {
	if v == model.VariantTimeWindowed {
		return c.TWVRPBudget
	}
	return c.CVRPBudget
}

// TimeSettings 返回时间维度参数
func (c *SolverConfig) TimeSettings() dimension.TimeSettings {
	return dimension.TimeSettings{MaxWait: c.MaxWait, Horizon: c.Horizon}.Normalize()
}

// ResultSettings 影响求解结果的参数
//
// 预算、并发度与追踪频率不改变确定性停止的结果，不在其中。
type ResultSettings struct {
	StallLimit        int     `json:"stall_limit"`
	MaxIterations     int     `json:"max_iterations"`
	LambdaCoefficient float64 `json:"lambda_coefficient"`
	MaxWait           int64   `json:"max_wait"`
	Horizon           int64   `json:"horizon"`
}

// ResultSettings 返回影响求解结果的参数，时间参数取规范化后的值
func (c *SolverConfig) ResultSettings() ResultSettings {
	ts := c.TimeSettings()
	return ResultSettings{
		StallLimit:        c.StallLimit,
		MaxIterations:     c.MaxIterations,
		LambdaCoefficient: c.LambdaCoefficient,
		MaxWait:           ts.MaxWait,
		Horizon:           ts.Horizon,
	}
}

// EngineOptions 转换为引擎选项
func (c *SolverConfig) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithStallLimit(c.StallLimit),
		engine.WithMaxIterations(c.MaxIterations),
		engine.WithLambda(c.LambdaCoefficient),
		engine.WithWorkers(c.Workers),
		engine.WithTimeSettings(c.TimeSettings()),
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SlowQuery       time.Duration `yaml:"slow_query"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"pool_size"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// Addr 返回Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name: "vrpsolver",
			Env:  "development",
		},
		Log: logger.DefaultConfig(),
		Solver: SolverConfig{
			CVRPBudget:          engine.DefaultCVRPBudget,
			TWVRPBudget:         engine.DefaultTWVRPBudget,
			StallLimit:          optimizer.DefaultStallLimit,
			LambdaCoefficient:   optimizer.DefaultLambdaCoefficient,
			Workers:             1,
			MaxWait:             dimension.DefaultMaxWait,
			Horizon:             dimension.DefaultHorizon,
			BatchParallelism:    4,
			TraceMovesPerSecond: 5,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "vrpsolver",
			User:            "vrpsolver",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			SlowQuery:       100 * time.Millisecond,
		},
		Redis: RedisConfig{
			Host:      "localhost",
			Port:      6379,
			PoolSize:  10,
			TTL:       24 * time.Hour,
			KeyPrefix: "vrpsolver:result:",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := Default()
	applyEnv(cfg)
	return cfg, cfg.Validate()
}

// LoadFile 加载 YAML 配置文件，环境变量优先于文件
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	applyEnv(cfg)
	return cfg, cfg.Validate()
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Solver.Workers < 1 {
		return fmt.Errorf("solver.workers 必须 >= 1, 实际 %d", c.Solver.Workers)
	}
	if c.Solver.BatchParallelism < 1 {
		return fmt.Errorf("solver.batch_parallelism 必须 >= 1, 实际 %d", c.Solver.BatchParallelism)
	}
	if c.Solver.LambdaCoefficient < 0 {
		return fmt.Errorf("solver.lambda_coefficient 不能为负, 实际 %g", c.Solver.LambdaCoefficient)
	}
	if c.Solver.CVRPBudget <= 0 || c.Solver.TWVRPBudget <= 0 {
		return fmt.Errorf("求解时间预算必须为正")
	}
	return nil
}

// applyEnv 用环境变量覆盖已有配置
func applyEnv(c *Config) {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", c.App.Env)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.Output = getEnv("LOG_OUTPUT", c.Log.Output)
	c.Log.FilePath = getEnv("LOG_FILE", c.Log.FilePath)

	c.Solver.CVRPBudget = getEnvDuration("SOLVER_CVRP_BUDGET", c.Solver.CVRPBudget)
	c.Solver.TWVRPBudget = getEnvDuration("SOLVER_TWVRP_BUDGET", c.Solver.TWVRPBudget)
	c.Solver.StallLimit = getEnvInt("SOLVER_STALL_LIMIT", c.Solver.StallLimit)
	c.Solver.MaxIterations = getEnvInt("SOLVER_MAX_ITERATIONS", c.Solver.MaxIterations)
	c.Solver.LambdaCoefficient = getEnvFloat("SOLVER_LAMBDA", c.Solver.LambdaCoefficient)
	c.Solver.Workers = getEnvInt("SOLVER_WORKERS", c.Solver.Workers)
	c.Solver.MaxWait = int64(getEnvInt("SOLVER_MAX_WAIT", int(c.Solver.MaxWait)))
	c.Solver.Horizon = int64(getEnvInt("SOLVER_HORIZON", int(c.Solver.Horizon)))
	c.Solver.BatchParallelism = getEnvInt("SOLVER_BATCH_PARALLELISM", c.Solver.BatchParallelism)
	c.Solver.TraceMovesPerSecond = getEnvFloat("SOLVER_TRACE_RATE", c.Solver.TraceMovesPerSecond)

	c.Database.Enabled = getEnvBool("DB_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)
	c.Database.SlowQuery = getEnvDuration("DB_SLOW_QUERY", c.Database.SlowQuery)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.TTL = getEnvDuration("REDIS_TTL", c.Redis.TTL)
	c.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Redis.KeyPrefix)

	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Addr = getEnv("METRICS_ADDR", c.Metrics.Addr)
	c.Metrics.Path = getEnv("METRICS_PATH", c.Metrics.Path)
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// LogConfig 返回日志配置，生产环境不使用控制台格式
func (c *Config) LogConfig() logger.Config {
	lc := c.Log
	if c.IsProduction() && lc.Format == "console" {
		lc.Format = "json"
	}
	return lc
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
