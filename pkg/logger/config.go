package logger

import "go.uber.org/zap/zapcore"

// Format 输出格式
type Format string

const (
	// JSONFormat JSON 格式（生产环境）
	JSONFormat Format = "json"
	// ConsoleFormat 控制台格式（开发环境）
	ConsoleFormat Format = "console"
)

// Config 日志配置
type Config struct {
	// Level 日志级别：debug/info/warn/error
	Level string `mapstructure:"level"`
	// Format 输出格式：json/console
	Format Format `mapstructure:"format"`
	// Console 是否输出到控制台
	Console bool `mapstructure:"console"`
	// File 日志文件路径（为空则不写文件）
	File string `mapstructure:"file"`
	// Rotate 文件轮转配置（非空时 File 走轮转输出）
	Rotate *RotateConfig `mapstructure:"rotate"`
	// EnableCaller 是否记录调用位置
	EnableCaller bool `mapstructure:"enable_caller"`
	// EnableStacktrace Error 及以上是否附带堆栈
	EnableStacktrace bool `mapstructure:"enable_stacktrace"`
}

// RotateConfig 文件轮转配置
type RotateConfig struct {
	MaxSize    int  `mapstructure:"max_size"`    // 单文件最大体积（MB）
	MaxAge     int  `mapstructure:"max_age"`     // 保留天数
	MaxBackups int  `mapstructure:"max_backups"` // 保留文件数
	Compress   bool `mapstructure:"compress"`    // 是否压缩旧文件
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = JSONFormat
	}
	if !c.Console && c.File == "" {
		c.Console = true
	}
}

// setDefaults 填充轮转默认值
func (r *RotateConfig) setDefaults() {
	if r.MaxSize <= 0 {
		r.MaxSize = 100
	}
	if r.MaxAge <= 0 {
		r.MaxAge = 7
	}
	if r.MaxBackups <= 0 {
		r.MaxBackups = 10
	}
}

// parseLevel 解析日志级别，未知值回落到 info
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
