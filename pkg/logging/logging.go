// Package logging 提供基于 zerolog 的统一日志配置。
//
// 使用方式：
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	log := logging.Component("train")
//	log.Info().Int("ratings", n).Msg("aggregated view events")
//
// 未调用 Init 时使用默认配置：info 级别、JSON 输出到 stderr。
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 是日志配置。
type Config struct {
	// Level: trace, debug, info, warn, error, disabled。默认 info
	Level string `yaml:"level" json:"level"`

	// Format: json 或 console。默认 json
	Format string `yaml:"format" json:"format"`

	// Output 为空时写 stderr，主要用于测试
	Output io.Writer `yaml:"-" json:"-"`
}

var (
	mu     sync.RWMutex
	logger = newLogger(Config{})
)

func newLogger(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Init 替换全局 logger。
func Init(cfg Config) {
	l := newLogger(cfg)
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Logger 返回全局 logger 的拷贝。
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Component 返回带 component 字段的子 logger。
func Component(name string) zerolog.Logger {
	l := Logger()
	return l.With().Str("component", name).Logger()
}
