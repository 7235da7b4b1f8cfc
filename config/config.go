// Package config 提供了统一的配置加载与管理能力.
// 生成摘要:
// 1) TOML 文件 + APP_ 前缀环境变量覆盖，加载后执行结构体校验。
// 2) 文件变更时热更新，并联动日志级别与注册的回调。
// 3) 增加过滤器、会话与渲染相关配置段。
// 假设:
// 1) Redis 为可选依赖，仅在分布式限流时启用。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/bloomlab/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version        string               `mapstructure:"version"        toml:"version"`
	Server         ServerConfig         `mapstructure:"server"         toml:"server"`
	Log            LogConfig            `mapstructure:"log"            toml:"log"`
	Metrics        MetricsConfig        `mapstructure:"metrics"        toml:"metrics"`
	Tracing        TracingConfig        `mapstructure:"tracing"        toml:"tracing"`
	RateLimit      RateLimitConfig      `mapstructure:"ratelimit"      toml:"ratelimit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitbreaker" toml:"circuitbreaker"`
	Redis          RedisConfig          `mapstructure:"redis"          toml:"redis"`
	BigCache       BigCacheConfig       `mapstructure:"bigcache"       toml:"bigcache"`
	Snowflake      SnowflakeConfig      `mapstructure:"snowflake"      toml:"snowflake"`
	Filter         FilterConfig         `mapstructure:"filter"         toml:"filter"`
	Session        SessionConfig        `mapstructure:"session"        toml:"session"`
	Render         RenderConfig         `mapstructure:"render"         toml:"render"`
}

// ServerConfig 定义服务器运行时的基础网络与环境参数.
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr              string        `mapstructure:"addr"                toml:"addr"                validate:"required"`
		ReadTimeout       time.Duration `mapstructure:"read_timeout"        toml:"read_timeout"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" toml:"read_header_timeout"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"       toml:"write_timeout"`
		IdleTimeout       time.Duration `mapstructure:"idle_timeout"        toml:"idle_timeout"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    toml:"shutdown_timeout"`
		MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      toml:"max_body_bytes"`
		SlowThreshold     time.Duration `mapstructure:"slow_threshold"      toml:"slow_threshold"`
	} `mapstructure:"http" toml:"http"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"` // 日志级别。
	Output     string `mapstructure:"output"      toml:"output"      validate:"omitempty,oneof=stdout file both"`      // 日志输出目标。
	File       string `mapstructure:"file"        toml:"file"`                                                         // 日志文件路径。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`                                                     // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`                                                  // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`                                                      // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                                     // 是否启用压缩。
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 分布式链路追踪（OpenTelemetry）配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// RateLimitConfig 定义限流参数。Backend 为 local 时使用令牌桶，为 redis 时使用滑动窗口.
type RateLimitConfig struct {
	Backend string        `mapstructure:"backend" toml:"backend" validate:"omitempty,oneof=local redis"`
	Rate    int           `mapstructure:"rate"    toml:"rate"    validate:"gte=0"`
	Burst   int           `mapstructure:"burst"   toml:"burst"   validate:"gte=0"`
	Window  time.Duration `mapstructure:"window"  toml:"window"`
	Enabled bool          `mapstructure:"enabled" toml:"enabled"`
}

// CircuitBreakerConfig 定义熔断器（gobreaker）的保护策略.
type CircuitBreakerConfig struct {
	Interval    time.Duration `mapstructure:"interval"     toml:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"      toml:"timeout"`
	MaxRequests uint32        `mapstructure:"max_requests" toml:"max_requests"`
	Enabled     bool          `mapstructure:"enabled"      toml:"enabled"`
}

// RedisConfig 定义 Redis 连接与池化参数.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"           toml:"addr"`
	Password     string        `mapstructure:"password"       toml:"password"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"   toml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"  toml:"write_timeout"`
	DB           int           `mapstructure:"db"             toml:"db"`
	PoolSize     int           `mapstructure:"pool_size"      toml:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" toml:"min_idle_conns"`
}

// BigCacheConfig 渲染结果本地缓存参数.
type BigCacheConfig struct {
	LifeWindow       time.Duration `mapstructure:"life_window"         toml:"life_window"`
	CleanWindow      time.Duration `mapstructure:"clean_window"        toml:"clean_window"`
	Shards           int           `mapstructure:"shards"              toml:"shards"`
	HardMaxCacheSize int           `mapstructure:"hard_max_cache_size" toml:"hard_max_cache_size"`
	Enabled          bool          `mapstructure:"enabled"             toml:"enabled"`
}

// SnowflakeConfig 会话 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"       validate:"omitempty,oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id"`
}

// FilterConfig 定义过滤器的默认参数与服务端上限.
type FilterConfig struct {
	Digest        string `mapstructure:"digest"         toml:"digest"         validate:"omitempty,oneof=md5 sha256 xxh3 murmur3"`
	DefaultSize   int    `mapstructure:"default_size"   toml:"default_size"   validate:"gt=0"`
	DefaultHashes int    `mapstructure:"default_hashes" toml:"default_hashes" validate:"gt=0"`
	MaxSize       int    `mapstructure:"max_size"       toml:"max_size"       validate:"gtefield=DefaultSize"`
	MaxHashes     int    `mapstructure:"max_hashes"     toml:"max_hashes"     validate:"gtefield=DefaultHashes"`
	MaxConfigs    int    `mapstructure:"max_configs"    toml:"max_configs"    validate:"gt=0"`
}

// SessionConfig 定义会话注册表参数.
type SessionConfig struct {
	CookieName      string        `mapstructure:"cookie_name"      toml:"cookie_name"      validate:"required"`
	TTL             time.Duration `mapstructure:"ttl"              toml:"ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval" toml:"janitor_interval"`
	MaxSessions     int           `mapstructure:"max_sessions"     toml:"max_sessions"     validate:"gte=0"`
}

// RenderConfig 定义可视化图像尺寸.
type RenderConfig struct {
	Width             int `mapstructure:"width"              toml:"width"              validate:"gte=200"`
	Height            int `mapstructure:"height"             toml:"height"             validate:"gte=200"`
	ComparisonWidth   int `mapstructure:"comparison_width"   toml:"comparison_width"   validate:"gte=200"`
	ComparisonHeight  int `mapstructure:"comparison_height"  toml:"comparison_height"  validate:"gte=200"`
	PerformanceWidth  int `mapstructure:"performance_width"  toml:"performance_width"  validate:"gte=200"`
	PerformanceHeight int `mapstructure:"performance_height" toml:"performance_height" validate:"gte=200"`
}

var (
	vInstance = viper.New()
	hooksMu   sync.Mutex
	onReload  []func(*Config)
	validate  = validator.New()
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	onReload = append(onReload, hook)
	hooksMu.Unlock()
}

// setDefaults 注册全部默认值，文件与环境变量中缺省的键回落到这里。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "bloomlab")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.http.addr", ":5000")
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.read_header_timeout", 5*time.Second)
	v.SetDefault("server.http.write_timeout", 30*time.Second)
	v.SetDefault("server.http.idle_timeout", 60*time.Second)
	v.SetDefault("server.http.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.http.max_body_bytes", 16<<20)
	v.SetDefault("server.http.slow_threshold", 500*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 7)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tracing.service_name", "bloomlab")
	v.SetDefault("tracing.sampler_ratio", 1.0)

	v.SetDefault("ratelimit.backend", "local")
	v.SetDefault("ratelimit.rate", 50)
	v.SetDefault("ratelimit.burst", 100)
	v.SetDefault("ratelimit.window", time.Second)

	v.SetDefault("circuitbreaker.interval", 30*time.Second)
	v.SetDefault("circuitbreaker.timeout", 10*time.Second)
	v.SetDefault("circuitbreaker.max_requests", 1)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.read_timeout", time.Second)
	v.SetDefault("redis.write_timeout", time.Second)

	v.SetDefault("bigcache.enabled", true)
	v.SetDefault("bigcache.life_window", 10*time.Minute)
	v.SetDefault("bigcache.clean_window", 5*time.Minute)
	v.SetDefault("bigcache.shards", 64)
	v.SetDefault("bigcache.hard_max_cache_size", 64)

	v.SetDefault("snowflake.type", "snowflake")
	v.SetDefault("snowflake.machine_id", 1)

	v.SetDefault("filter.digest", "md5")
	v.SetDefault("filter.default_size", 100)
	v.SetDefault("filter.default_hashes", 3)
	v.SetDefault("filter.max_size", 100000)
	v.SetDefault("filter.max_hashes", 32)
	v.SetDefault("filter.max_configs", 9)

	v.SetDefault("session.cookie_name", "bloom_session")
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.janitor_interval", time.Minute)
	v.SetDefault("session.max_sessions", 10000)

	v.SetDefault("render.width", 800)
	v.SetDefault("render.height", 600)
	v.SetDefault("render.comparison_width", 1200)
	v.SetDefault("render.comparison_height", 800)
	v.SetDefault("render.performance_width", 1000)
	v.SetDefault("render.performance_height", 800)
}

// Default 返回仅由默认值构成的配置，用于测试与无配置文件启动。
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		panic(fmt.Errorf("unmarshal default config: %w", err))
	}
	return conf
}

// Validate 执行结构体标签校验。
func Validate(conf *Config) error {
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Load 加载配置文件并开启热更新。path 为空时只使用默认值与环境变量.
func Load(path string, conf *Config) error {
	setDefaults(vInstance)

	vInstance.SetEnvPrefix("APP")
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()

	if path != "" {
		vInstance.SetConfigFile(path)
		vInstance.SetConfigType("toml")
		if err := vInstance.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	if err := vInstance.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	if err := Validate(conf); err != nil {
		return err
	}

	if path == "" {
		return nil
	}

	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := &Config{}
		if unmarshalErr := vInstance.Unmarshal(next); unmarshalErr != nil {
			slog.Error("reload config unmarshal failed", "error", unmarshalErr)

			return
		}

		if validateErr := Validate(next); validateErr != nil {
			slog.Error("reload config validation failed", "error", validateErr)

			return
		}

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		hooksMu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		hooksMu.Unlock()
		for _, hook := range hooks {
			hook(next)
		}
	})
	vInstance.WatchConfig()

	return nil
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)

		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)

		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.Marshal(configMap)
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)

		return
	}

	slog.Info("Current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)

			continue
		}

		if slice, ok := val.([]any); ok {
			for _, item := range slice {
				if itemMap, ok := item.(map[string]any); ok {
					mask(itemMap)
				}
			}

			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"

				break
			}
		}
	}
}

// GetViper 返回底层的 Viper 实例.
func GetViper() *viper.Viper {
	return vInstance
}
