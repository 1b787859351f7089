// Package bootstrap 负责命令行程序的通用基础设施初始化：配置、日志、追踪与指标。
package bootstrap

import (
	"context"

	"github.com/wyfcoding/rangetree/config"
	"github.com/wyfcoding/rangetree/logging"
	"github.com/wyfcoding/rangetree/metrics"
	"github.com/wyfcoding/rangetree/tracing"
)

// Bootstrapper 处理通用基础设施的初始化
type Bootstrapper struct {
	ServiceName string
	Version     string
	Logger      *logging.Logger
	Config      *config.Config
}

// New 创建一个新的引导器实例
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
		Logger:      logging.Default(),
	}
}

// Initialize 加载配置文件，并按配置重新初始化日志系统。
// watch 为 true 时开启配置热更新，日志级别随配置文件变化。
func (b *Bootstrapper) Initialize(configPath string, watch bool) (*config.Config, error) {
	// 1. 临时 Logger，用于记录配置加载过程中的错误。
	b.Logger = logging.InitLogger(logging.Config{Service: b.ServiceName, Module: "bootstrap", Level: "info"})

	// 2. 加载配置文件。
	cfg := &config.Config{}
	var err error
	if watch {
		config.RegisterReloadHook(func(c *config.Config) {
			b.Logger.Info("config reloaded", "path", configPath, "log_level", c.Log.Level, "workloads", len(c.Workloads))
		})
		_, err = config.LoadAndWatch(configPath, cfg)
	} else {
		err = config.Load(configPath, cfg)
	}
	if err != nil {
		b.Logger.Error("failed to load config", "path", configPath, "error", err)
		return nil, err
	}
	if cfg.Version == "" || cfg.Version == "dev" {
		cfg.Version = b.Version
	}

	// 3. 使用配置重新初始化 Logger。
	b.Logger = logging.InitLogger(cfg.LoggingConfig(b.ServiceName, "cli"))
	b.Config = cfg
	b.Logger.Info("config loaded", "path", configPath, "version", cfg.Version, "workloads", len(cfg.Workloads))
	return cfg, nil
}

// SetupTracing 初始化 OpenTelemetry 追踪器，返回关闭函数。
func (b *Bootstrapper) SetupTracing() func() {
	if b.Config == nil {
		return func() {}
	}
	tc := b.Config.Tracing
	if tc.ServiceName == "" {
		tc.ServiceName = b.ServiceName
	}
	shutdown, err := tracing.InitTracer(tc)
	if err != nil {
		b.Logger.Error("failed to init tracer", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			b.Logger.Error("failed to shutdown tracer", "error", err)
		}
	}
}

// SetupMetrics 创建指标采集器；配置启用时在独立端口暴露，返回关闭函数。
func (b *Bootstrapper) SetupMetrics() (*metrics.Metrics, func()) {
	m := metrics.NewMetrics(b.ServiceName)
	m.RegisterBuildInfo(b.ServiceName, b.Version)
	if b.Config == nil || !b.Config.Metrics.Enabled {
		return m, func() {}
	}
	b.Logger.Info("exposing metrics", "port", b.Config.Metrics.Port, "path", b.Config.Metrics.Path)
	return m, m.ExposeHttp(b.Config.Metrics.Port, b.Config.Metrics.Path)
}
