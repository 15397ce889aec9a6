package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tokmz/relay/pkg/logger"
)

// 存储模式
const (
	// StoreMemory 进程内存储（单 worker 部署/测试）
	StoreMemory = "memory"
	// StoreRedis 共享 Redis 存储（多 worker 部署）
	StoreRedis = "redis"
)

// Config 服务配置
type Config struct {
	Server ServerConfig  `mapstructure:"server"`
	Auth   AuthConfig    `mapstructure:"auth"`
	Store  StoreConfig   `mapstructure:"store"`
	Log    logger.Config `mapstructure:"log"`
}

// ServerConfig 服务与传输层配置
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	AppID             string        `mapstructure:"app_id"`
	MaxConnections    int           `mapstructure:"max_connections"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `mapstructure:"heartbeat_timeout"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret HS256 共享签名密钥
	Secret string `mapstructure:"jwt_secret"`
	// TokenCacheTTL 令牌缓存时长
	TokenCacheTTL time.Duration `mapstructure:"token_cache_ttl"`
}

// StoreConfig 房间/注册表存储配置
type StoreConfig struct {
	// Mode memory 或 redis
	Mode  string      `mapstructure:"mode"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Load 加载配置
//
// path 为空时在当前目录与 /etc/relay 下查找 relay.yaml。
// 环境变量以 RELAY_ 为前缀覆盖同名配置（RELAY_AUTH_JWT_SECRET
// 覆盖 auth.jwt_secret）。
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/relay")
	}

	if err := v.ReadInConfig(); err != nil {
		// 配置可以完全来自环境变量，文件缺失不是错误
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read failed: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("config: unmarshal failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9501)
	// 注册无默认值的键，Unmarshal 才能看到纯环境变量来源的配置
	v.SetDefault("server.app_id", "")
	v.SetDefault("server.max_connections", 1000)
	v.SetDefault("server.max_message_size", 4<<20)
	v.SetDefault("server.heartbeat_interval", "60s")
	v.SetDefault("server.heartbeat_timeout", "300s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_cache_ttl", "300s")

	v.SetDefault("store.mode", StoreMemory)
	v.SetDefault("store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("store.redis.pool_size", 10)
	v.SetDefault("store.redis.key_prefix", "relay:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.console", true)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.AppID == "" {
		return fmt.Errorf("config: server.app_id is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("config: auth.jwt_secret is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	switch c.Store.Mode {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("config: store.redis.addr is required in redis mode")
		}
	default:
		return fmt.Errorf("config: store.mode must be %q or %q, got %q",
			StoreMemory, StoreRedis, c.Store.Mode)
	}
	return nil
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
