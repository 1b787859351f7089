// Package config 提供了统一的配置加载与管理能力.
// 配置以 TOML 为主，可通过 APP_ 前缀的环境变量覆盖（"." 替换为 "_"），加载后经 validator 校验.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/rangetree/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version   string           `mapstructure:"version"   toml:"version"`
	Log       LogConfig        `mapstructure:"log"       toml:"log"`
	Metrics   MetricsConfig    `mapstructure:"metrics"   toml:"metrics"`
	Tracing   TracingConfig    `mapstructure:"tracing"   toml:"tracing"`
	Workloads []WorkloadConfig `mapstructure:"workloads" toml:"workloads" validate:"dive"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"` // 日志级别。
	File       string `mapstructure:"file"        toml:"file"`                                                        // 日志文件路径。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`                                                    // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`                                                 // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`                                                     // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                                    // 是否启用压缩。
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig OpenTelemetry 链路追踪配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"min=0,max=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// WorkloadConfig 描述一次线段树压测/校验任务.
type WorkloadConfig struct {
	Name        string  `mapstructure:"name"         toml:"name"         validate:"required"`
	ValueType   string  `mapstructure:"value_type"   toml:"value_type"   validate:"omitempty,oneof=int decimal string"`
	Operation   string  `mapstructure:"operation"    toml:"operation"    validate:"oneof=sum min max xor concat decimal_sum expr"`
	Expression  string  `mapstructure:"expression"   toml:"expression"   validate:"required_if=Operation expr"` // expr-lang 表达式，变量为 a 与 b。
	Identity    string  `mapstructure:"identity"     toml:"identity"`                                           // 单位元，按 ValueType 解析。
	Size        int     `mapstructure:"size"         toml:"size"         validate:"min=0"`
	Steps       int     `mapstructure:"steps"        toml:"steps"        validate:"min=1"`
	UpdateRatio float64 `mapstructure:"update_ratio" toml:"update_ratio" validate:"min=0,max=1"`
	Seed        uint64  `mapstructure:"seed"         toml:"seed"`
}

var (
	hooksMu  sync.Mutex
	onReload []func(*Config)
)

// RegisterReloadHook 注册配置热更新后的回调，仅在目标为 *Config 时触发.
func RegisterReloadHook(hook func(*Config)) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	onReload = append(onReload, hook)
}

// Loader 持有一个独立的 viper 实例，负责读取、校验与监听单个配置文件.
type Loader struct {
	v        *viper.Viper
	validate *validator.Validate
}

// NewLoader 创建指向 path 的加载器并注册默认值.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("version", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.port", "9090")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("tracing.service_name", "rangetree")
	v.SetDefault("tracing.sampler_ratio", 1.0)

	return &Loader{v: v, validate: validator.New()}
}

// Load 读取配置文件并反序列化到 conf，随后执行结构体校验.
func (l *Loader) Load(conf any) error {
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}
	if err := l.v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := l.validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Watch 监听配置文件变化，重新加载后同步日志级别并触发回调.
// 校验失败的新配置仍会被写入 conf，但只记录错误、不触发回调.
func (l *Loader) Watch(conf any) {
	l.v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name, "op", event.Op.String())
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		if err := l.v.Unmarshal(conf); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := l.validate.Struct(conf); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		cfg, ok := conf.(*Config)
		if !ok {
			return
		}
		logging.SetLevel(cfg.Log.Level)
		slog.Info("config hot-reloaded and validated successfully", "log_level", cfg.Log.Level)

		hooksMu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		hooksMu.Unlock()
		for _, hook := range hooks {
			hook(cfg)
		}
	})
	l.v.WatchConfig()
}

// Load 读取并校验 path 指向的配置文件.
func Load(path string, conf any) error {
	return NewLoader(path).Load(conf)
}

// LoadAndWatch 读取配置并开启热更新监听.
func LoadAndWatch(path string, conf any) (*Loader, error) {
	l := NewLoader(path)
	if err := l.Load(conf); err != nil {
		return nil, err
	}
	l.Watch(conf)
	return l, nil
}

// LoggingConfig 将日志配置转换为 logging.Config.
func (c *Config) LoggingConfig(service, module string) logging.Config {
	return logging.Config{
		Service:    service,
		Module:     module,
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	}
}
