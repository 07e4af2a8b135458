// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, "configs/config.yaml", false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := fmt.Sprintf("configs/config.%s.yaml", env)
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	// 匹配 ${VAR} 或 ${VAR:default}
	// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
	re := regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match // 原样返回，以便识别未定义的变量
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "aipen-studio-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "300s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// 图像模型默认值
	v.SetDefault("image.model", "gemini-2.5-flash-image")
	v.SetDefault("image.timeout", "120s")

	// 生成参数默认值
	v.SetDefault("generation.min_chapters", 10)
	v.SetDefault("generation.max_chapters", 60)
	v.SetDefault("generation.pages_per_chapter", 8)
	v.SetDefault("generation.deep_depth_threshold", 200)
	v.SetDefault("generation.illustration_aspect_ratio", "16:9")
	v.SetDefault("generation.cover_aspect_ratio", "3:4")
	v.SetDefault("generation.cover_styles", []string{
		"Modern Minimalist Serif Typography, dramatic lighting",
		"Epic cinematic digital art, concept-driven",
		"Vintage classic cloth-bound hardcover texture with gold foil accents",
		"Abstract geometric professional corporate style",
	})

	// 快照存储默认值
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.key", "aipen_projects_v12")
	v.SetDefault("store.file.dir", "data")

	// Redis 默认值
	v.SetDefault("store.redis.host", "localhost")
	v.SetDefault("store.redis.port", 6379)
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.pool_size", 100)
	v.SetDefault("store.redis.min_idle_conns", 10)
	v.SetDefault("store.redis.dial_timeout", "5s")
	v.SetDefault("store.redis.read_timeout", "3s")
	v.SetDefault("store.redis.write_timeout", "3s")

	// PostgreSQL 默认值
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.database", "aipen_studio")
	v.SetDefault("store.postgres.ssl_mode", "disable")
	v.SetDefault("store.postgres.max_open_conns", 10)
	v.SetDefault("store.postgres.max_idle_conns", 5)
	v.SetDefault("store.postgres.conn_max_lifetime", "30m")
	v.SetDefault("store.postgres.conn_max_idle_time", "5m")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.exporter", "otlp")
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")
}
