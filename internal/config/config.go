package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lottery-server/common/logger"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config 服务配置（Nacos 或本地文件）
// 注意：时间字段统一使用毫秒或秒，字段名带单位
type Config struct {
	Server struct {
		Port     int    `yaml:"port" json:"port"`
		LogLevel string `yaml:"log_level" json:"log_level"`
	} `yaml:"server" json:"server"`

	Database struct {
		DSN                string `yaml:"dsn" json:"dsn"` // 为空时使用进程内存储
		MaxOpenConns       int    `yaml:"max_open_conns" json:"max_open_conns"`
		MaxIdleConns       int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec" json:"conn_max_lifetime_sec"`
		LockWaitTimeoutSec int    `yaml:"lock_wait_timeout_sec" json:"lock_wait_timeout_sec"`
	} `yaml:"database" json:"database"`

	Redis struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`

	RocketMQ struct {
		Endpoint      string `yaml:"endpoint" json:"endpoint"`
		ProducerGroup string `yaml:"producer_group" json:"producer_group"`
		TopicDraw     string `yaml:"topic_draw" json:"topic_draw"`
		AccessKey     string `yaml:"access_key" json:"access_key"`
		SecretKey     string `yaml:"secret_key" json:"secret_key"`
	} `yaml:"rocketmq" json:"rocketmq"`

	Auth struct {
		DemoMode bool `yaml:"demo_mode" json:"demo_mode"` // 演示模式：X-User-Id 头即可抽奖
		JWT      struct {
			Secret         string `yaml:"secret" json:"secret"`
			AccessTokenTTL int    `yaml:"access_token_ttl" json:"access_token_ttl"` // 秒
			Issuer         string `yaml:"issuer" json:"issuer"`
		} `yaml:"jwt" json:"jwt"`
		Admin struct {
			Enabled bool   `yaml:"enabled" json:"enabled"`
			Token   string `yaml:"token" json:"token"`
		} `yaml:"admin" json:"admin"`
	} `yaml:"auth" json:"auth"`

	RateLimit struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
		ByIP    struct {
			RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
			WindowSeconds     int `yaml:"window_seconds" json:"window_seconds"`
		} `yaml:"by_ip" json:"by_ip"`
		ByUser struct {
			RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
			WindowSeconds     int `yaml:"window_seconds" json:"window_seconds"`
		} `yaml:"by_user" json:"by_user"`
	} `yaml:"rate_limit" json:"rate_limit"`

	CORS struct {
		Enabled          bool     `yaml:"enabled" json:"enabled"`
		AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins"`
		AllowedMethods   []string `yaml:"allowed_methods" json:"allowed_methods"`
		AllowedHeaders   []string `yaml:"allowed_headers" json:"allowed_headers"`
		ExposedHeaders   []string `yaml:"exposed_headers" json:"exposed_headers"`
		AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
		MaxAge           int      `yaml:"max_age" json:"max_age"`
	} `yaml:"cors" json:"cors"`

	Draw struct {
		TxTimeoutMs int64 `yaml:"tx_timeout_ms" json:"tx_timeout_ms"`
		// 随机源：crypto（默认）| seeded（仅用于压测复现）
		RandomSource string `yaml:"random_source" json:"random_source"`
		Seed         uint64 `yaml:"seed" json:"seed"`
	} `yaml:"draw" json:"draw"`

	// 动态配置：功能开关与业务阈值（Nacos 热更新）
	FeatureFlags map[string]bool  `yaml:"feature_flags" json:"feature_flags"`
	Thresholds   map[string]int64 `yaml:"thresholds" json:"thresholds"`
}

const defaultConfigFile = "config/dev.yaml"

// Load 读取配置：设置了 NACOS_SERVER_ADDR 时先取 Nacos，失败降级到 CONFIG_FILE（默认 config/dev.yaml）
// 之后依次应用环境变量覆盖和默认值
func Load(ctx context.Context) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if env, ok := nacosFromEnv(); ok {
		if cfg, err = loadFromNacos(ctx, env); err == nil {
			logger.Info("[Config] 配置已从 Nacos 加载",
				zap.String("server", env.servers), zap.String("data_id", env.dataID),
				zap.String("namespace", env.namespace), zap.String("group", env.group))
		} else {
			logger.Warn("[Config] 从 Nacos 加载配置失败，降级使用本地文件", zap.Error(err))
		}
	}
	if cfg == nil {
		file := envOr("CONFIG_FILE", defaultConfigFile)
		if cfg, err = loadFromFile(file); err != nil {
			return nil, fmt.Errorf("load config (nacos unavailable, file %s): %w", file, err)
		}
		logger.Info("[Config] 配置已从本地文件加载", zap.String("file", file))
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnv 容器部署时用环境变量注入地址与密钥
func applyEnv(cfg *Config) {
	str := map[string]*string{
		"REDIS_ADDR":        &cfg.Redis.Addr,
		"REDIS_PASSWORD":    &cfg.Redis.Password,
		"ROCKETMQ_ENDPOINT": &cfg.RocketMQ.Endpoint,
		"JWT_SECRET":        &cfg.Auth.JWT.Secret,
	}
	for key, dst := range str {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	// MYSQL_DSN 允许显式置空，切回内存存储
	if v, ok := os.LookupEnv("MYSQL_DSN"); ok {
		cfg.Database.DSN = strings.TrimSpace(v)
	}
	if p, err := strconv.Atoi(os.Getenv("HTTP_PORT")); err == nil && p > 0 {
		cfg.Server.Port = p
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Auth.Admin.Token = v
		cfg.Auth.Admin.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("DEMO_MODE")); v != "" {
		cfg.Auth.DemoMode = v == "1" || strings.EqualFold(v, "true")
	}
}

func applyDefaults(cfg *Config) {
	setInt := func(dst *int, def int) {
		if *dst <= 0 {
			*dst = def
		}
	}
	setInt(&cfg.Server.Port, 8080)
	setInt(&cfg.Database.LockWaitTimeoutSec, 5)
	setInt(&cfg.Auth.JWT.AccessTokenTTL, 7200)
	if cfg.Draw.TxTimeoutMs <= 0 {
		cfg.Draw.TxTimeoutMs = 3000
	}
	if cfg.Auth.JWT.Issuer == "" {
		cfg.Auth.JWT.Issuer = "lottery-server"
	}
	if cfg.RocketMQ.TopicDraw == "" {
		cfg.RocketMQ.TopicDraw = "draw_completed"
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// loadFromFile 支持 .json / .yaml / .yml
func loadFromFile(path string) (*Config, error) {
	ext := filepath.Ext(path)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := parse(ext, data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parse 按扩展名解析；Nacos dataId 可能没有扩展名，此时 YAML 优先
func parse(ext string, data []byte, cfg *Config) error {
	switch ext {
	case ".json":
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse json config: %w", err)
		}
		return nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
		return nil
	}
	yerr := yaml.Unmarshal(data, cfg)
	if yerr == nil {
		return nil
	}
	if jerr := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, cfg); jerr != nil {
		return fmt.Errorf("parse config: yaml: %v; json: %v", yerr, jerr)
	}
	return nil
}
