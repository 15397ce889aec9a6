package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New 创建 Logger
//
// 组件通过构造函数显式接收 *zap.Logger，不使用进程级全局
// 实例。
func New(config *Config) (*zap.Logger, error) {
	if config == nil {
		config = &Config{}
	}
	config.setDefaults()

	encoder := buildEncoder(config)

	writers, err := buildWriters(config)
	if err != nil {
		return nil, err
	}
	if len(writers) == 0 {
		return nil, fmt.Errorf("logger: no output configured")
	}

	core := zapcore.NewCore(encoder,
		zapcore.NewMultiWriteSyncer(writers...), parseLevel(config.Level))

	opts := []zap.Option{}
	if config.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if config.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(core, opts...), nil
}

// NewDevelopment 创建开发环境 Logger
func NewDevelopment() (*zap.Logger, error) {
	return New(&Config{
		Level:        "debug",
		Format:       ConsoleFormat,
		Console:      true,
		EnableCaller: true,
	})
}

// buildEncoder 构建 Encoder
func buildEncoder(config *Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	switch config.Format {
	case ConsoleFormat:
		return zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return zapcore.NewJSONEncoder(encoderConfig)
	}
}

// buildWriters 构建 WriteSyncer
func buildWriters(config *Config) ([]zapcore.WriteSyncer, error) {
	var writers []zapcore.WriteSyncer

	if config.Console {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}

	if config.File != "" {
		if config.Rotate != nil {
			config.Rotate.setDefaults()
			writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
				Filename:   config.File,
				MaxSize:    config.Rotate.MaxSize,
				MaxAge:     config.Rotate.MaxAge,
				MaxBackups: config.Rotate.MaxBackups,
				Compress:   config.Rotate.Compress,
			}))
		} else {
			writer, _, err := zap.Open(config.File)
			if err != nil {
				return nil, fmt.Errorf("logger: failed to open log file %s: %w", config.File, err)
			}
			writers = append(writers, writer)
		}
	}

	return writers, nil
}
