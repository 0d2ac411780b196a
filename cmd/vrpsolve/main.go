// vrpsolve 车辆路径问题求解命令行工具
package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vrpsolver/vrpsolver/internal/cache"
	"github.com/vrpsolver/vrpsolver/internal/config"
	"github.com/vrpsolver/vrpsolver/internal/database"
	"github.com/vrpsolver/vrpsolver/internal/metrics"
	"github.com/vrpsolver/vrpsolver/internal/repository"
	"github.com/vrpsolver/vrpsolver/internal/service"
	"github.com/vrpsolver/vrpsolver/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	flagConfig      string
	flagMetricsAddr string
	flagLogLevel    string
	flagVariant     string
	flagBudget      time.Duration
	flagLegacy      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "vrpsolve",
		Short:        "求解带容量约束或时间窗约束的车辆路径问题",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML 配置文件路径")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "运行期间暴露 Prometheus 指标的地址，如 :9090")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "日志级别 debug/info/warn/error")

	rootCmd.AddCommand(solveCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func solveCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "求解单个问题文件并输出 JSON 结果",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(file, flagVariant)
			if err != nil {
				return err
			}
			req.Budget = flagBudget

			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				resp, err := a.svc.Solve(ctx, req)
				if err != nil {
					return err
				}
				return a.print(resp)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "问题文件（.json/.yaml）")
	cmd.Flags().StringVar(&flagVariant, "variant", "", "问题类型 cvrp/twvrp，缺省时从文件推断")
	cmd.Flags().DurationVar(&flagBudget, "budget", 0, "时间预算，缺省使用配置")
	cmd.Flags().BoolVar(&flagLegacy, "legacy", false, "输出 {visits, distance} 格式")
	cmd.MarkFlagRequired("file")

	return cmd
}

func batchCmd() *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "并发求解多个问题文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			files = append(files, args...)
			if len(files) == 0 {
				return fmt.Errorf("至少需要一个问题文件")
			}

			reqs := make([]service.Request, 0, len(files))
			for _, f := range files {
				req, err := loadRequest(f, flagVariant)
				if err != nil {
					return err
				}
				req.Budget = flagBudget
				reqs = append(reqs, req)
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				failed := 0
				for i, item := range a.svc.SolveBatch(ctx, reqs) {
					if item.Err != nil {
						failed++
						logger.WithError(item.Err).Str("file", reqs[i].Name).Msg("求解失败")
						continue
					}
					if err := a.print(item.Response); err != nil {
						return err
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d/%d 个问题求解失败", failed, len(reqs))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "问题文件，可重复")
	cmd.Flags().StringVar(&flagVariant, "variant", "", "问题类型 cvrp/twvrp，缺省时从文件推断")
	cmd.Flags().DurationVar(&flagBudget, "budget", 0, "每个问题的时间预算，缺省使用配置")
	cmd.Flags().BoolVar(&flagLegacy, "legacy", false, "输出 {visits, distance} 格式")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vrpsolve %s\nBuild: %s (%s)\n", Version, BuildTime, GitCommit)
		},
	}
}

// app 一次命令执行所需的依赖
type app struct {
	svc     *service.SolveService
	closers []func() error
}

func (a *app) print(resp *service.Response) error {
	var buf bytes.Buffer
	var v interface{} = resp
	if flagLegacy {
		v = legacySolution{Visits: resp.Result.Visits(), Distance: resp.Result.Objective}
	}
	if err := writeJSON(&buf, v); err != nil {
		return err
	}
	if resp.Gap != nil {
		logger.Info().Str("name", resp.Name).Float64("gap_percent", *resp.Gap).Msg("与已知最优值的差距")
	}
	_, err := os.Stdout.Write(buf.Bytes())
	return err
}

// withApp 加载配置、装配依赖后执行 fn，收到中断信号时取消求解并返回当前最优方案
func withApp(parent context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	logger.Init(cfg.LogConfig())

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
	}()

	opts := []service.Option{}

	m := metrics.New()
	opts = append(opts, service.WithMetrics(m))
	addr := flagMetricsAddr
	if addr == "" && cfg.Metrics.Enabled {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		a.closers = append(a.closers, serveMetrics(addr, cfg.Metrics.Path, m))
	}

	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, service.WithRepository(repository.NewSolveRunRepository(db)))
	}

	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rc.Close)
		opts = append(opts, service.WithCache(rc))
	} else {
		opts = append(opts, service.WithCache(cache.NewMemoryCache(cfg.Redis.TTL)))
	}

	a.svc = service.NewSolveService(cfg.Solver, opts...)
	return fn(ctx, a)
}

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.Load()
}

// serveMetrics 后台暴露指标，返回关闭函数
func serveMetrics(addr, path string, m *metrics.Metrics) func() error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Str("path", path).Msg("指标服务启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("指标服务启动失败")
		}
	}()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
