package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"creditlens/internal/config"
)

// Init 初始化全局日志
func Init(cfg *config.LogConfig) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch cfg.TimeFormat {
	case "Unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	case "UnixMs":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	default:
		zerolog.TimeFieldFormat = time.RFC3339
	}

	log.Logger = zerolog.New(newWriter(cfg)).With().Timestamp().Caller().Logger()
	return nil
}

// newWriter 根据配置选择输出目标
// file 输出使用 lumberjack 按大小滚动
func newWriter(cfg *config.LogConfig) io.Writer {
	var output io.Writer = os.Stdout
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		if cfg.FilePath != "" {
			output = &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    orDefault(cfg.MaxSizeMB, 100),
				MaxAge:     orDefault(cfg.MaxAgeDays, 28),
				MaxBackups: cfg.MaxBackups,
				Compress:   cfg.Compress,
			}
		}
	}

	// Console 格式 (开发环境友好)；文件输出保持 JSON
	if cfg.Format == "console" && cfg.Output != "file" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}
	return output
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Get 获取全局 logger
func Get() zerolog.Logger {
	return log.Logger
}

// Component 返回带 component 字段的子 logger
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
