package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config 日志配置
type Config struct {
	Level     slog.Level
	Format    string    // "json" 或 "text"
	AddSource bool      // 是否输出源码位置
	Writer    io.Writer // 输出目标，默认 stderr
}

// DefaultConfig 返回默认配置：INFO 级别、JSON 格式
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
		Writer: os.Stderr,
	}
}

// ParseLevel 解析 DEBUG/INFO/WARN/ERROR（不区分大小写）或整数级别
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return slog.Level(n), true
	}
	return 0, false
}

// LoadConfig 从环境变量加载日志配置
func LoadConfig() Config {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv 用 LOG_LEVEL、LOG_FORMAT 与 LOG_ADD_SOURCE 覆盖配置
func ApplyEnv(config Config) Config {
	if level, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
		config.Level = level
	}
	if format := strings.ToLower(os.Getenv("LOG_FORMAT")); format == "text" || format == "json" {
		config.Format = format
	}
	if addSourceStr := os.Getenv("LOG_ADD_SOURCE"); addSourceStr != "" {
		if addSource, err := strconv.ParseBool(addSourceStr); err == nil {
			config.AddSource = addSource
		}
	}
	return config
}

// New 按配置创建 logger
func New(config Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level,
		AddSource: config.AddSource,
	}
	w := config.Writer
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	switch config.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default: // json
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard 返回丢弃所有输出的 logger
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

var (
	defaultOnce   sync.Once
	defaultMu     sync.RWMutex
	defaultLogger *slog.Logger
)

// Default 返回进程级 logger，首次调用时按环境变量创建
func Default() *slog.Logger {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		if defaultLogger == nil {
			defaultLogger = New(LoadConfig())
		}
		defaultMu.Unlock()
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault 替换进程级 logger
func SetDefault(l *slog.Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// ContextKey 是日志相关的 context 键
type ContextKey string

const (
	// RequestIDKey 请求 id
	RequestIDKey ContextKey = "request_id"
)

// WithRequestID 在 context 中记录请求 id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// ExtractContextValues 取出 context 中需要写入日志的键值
func ExtractContextValues(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return []any{"request_id", requestID}
	}
	return nil
}
