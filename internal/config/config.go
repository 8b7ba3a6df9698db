package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	AI     AIConfig     `mapstructure:"ai"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Event  EventConfig  `mapstructure:"event"`
	Log    LogConfig    `mapstructure:"log"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig AI 服务配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"` // openai, azure, ark, deepseek
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// ChatConfig 对话会话配置
type ChatConfig struct {
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"` // 单次请求的最长等待时间
	SessionTTL      time.Duration `mapstructure:"session_ttl"`      // 空闲会话回收时间
	ArchiveOnReset  bool          `mapstructure:"archive_on_reset"` // 切换企业时归档对话
}

// EventConfig 流式事件通道配置
type EventConfig struct {
	Driver  string `mapstructure:"driver"`  // memory, redis
	Channel string `mapstructure:"channel"` // redis 频道前缀
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // 单个日志文件大小上限（file 输出时生效）
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	return c.validateShared()
}

// ValidateClient 验证命令行模式所需的配置（不涉及 HTTP 服务器）
func (c *Config) ValidateClient() error {
	return c.validateShared()
}

func (c *Config) validateShared() error {
	validProviders := map[string]bool{"": true, "openai": true, "azure": true, "ark": true, "deepseek": true}
	if !validProviders[c.AI.Provider] {
		return errors.New("invalid ai provider, must be openai/azure/ark/deepseek")
	}

	switch c.Event.Driver {
	case "", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("event driver redis requires redis.addr")
		}
	default:
		return errors.New("invalid event driver, must be memory/redis")
	}

	if c.Chat.DispatchTimeout < 0 {
		return errors.New("chat.dispatch_timeout must not be negative")
	}
	return nil
}
