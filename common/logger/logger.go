package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// 未调用 InitLogger 前（如单元测试）日志直接丢弃
var log = zap.NewNop()
var atomicLevel = zap.NewAtomicLevel()

// InitLogger 初始化全局日志器（JSON 输出到 stdout，可选滚动文件）
// 环境变量：LOG_LEVEL、LOG_TO_FILE、LOG_FILE、LOG_DIR、LOG_MAX_SIZE_MB、LOG_MAX_BACKUPS、LOG_MAX_DAYS、LOG_COMPRESS
func InitLogger() {
	level, ok := parseLevel(os.Getenv("LOG_LEVEL"))
	if !ok {
		level = zapcore.InfoLevel
	}
	atomicLevel = zap.NewAtomicLevelAt(level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), atomicLevel)}
	if path := logFilePath(); path != "" {
		core, err := fileCore(enc, path)
		if err != nil {
			// 文件不可写时只保留 stdout
			_, _ = fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		} else {
			cores = append(cores, core)
		}
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).
		With(zap.String("service", "lottery-server"))
}

// logFilePath LOG_FILE 优先，其次 LOG_DIR/app.log；仅 LOG_TO_FILE 时写 ./logs/app.log
func logFilePath() string {
	if f := strings.TrimSpace(os.Getenv("LOG_FILE")); f != "" {
		return f
	}
	if d := strings.TrimSpace(os.Getenv("LOG_DIR")); d != "" {
		return filepath.Join(d, "app.log")
	}
	if getenvBool("LOG_TO_FILE", false) {
		return filepath.Join("logs", "app.log")
	}
	return ""
}

func fileCore(enc zapcore.Encoder, path string) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    getenvInt("LOG_MAX_SIZE_MB", 100),
		MaxBackups: getenvInt("LOG_MAX_BACKUPS", 7),
		MaxAge:     getenvInt("LOG_MAX_DAYS", 14),
		Compress:   getenvBool("LOG_COMPRESS", true),
	}
	return zapcore.NewCore(enc, zapcore.AddSync(w), atomicLevel), nil
}

func getenvInt(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return n
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func Info(msg string, fields ...zap.Field)   { log.Info(msg, fields...) }
func Error(msg string, fields ...zap.Field)  { log.Error(msg, fields...) }
func Warn(msg string, fields ...zap.Field)   { log.Warn(msg, fields...) }
func Debug(msg string, fields ...zap.Field)  { log.Debug(msg, fields...) }
func Fatalf(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }
func Sync()                                  { _ = log.Sync() }

// SetLevel 动态调整日志级别（debug/info/warn/error），无效级别忽略
func SetLevel(level string) {
	if l, ok := parseLevel(level); ok {
		atomicLevel.SetLevel(l)
	}
}

func parseLevel(level string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	}
	return zapcore.InfoLevel, false
}

// fieldsWithTrace 追加 trace_id，与中间件日志字段同名
func fieldsWithTrace(ctx context.Context, fields ...zap.Field) []zap.Field {
	if id := GetTraceID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	return fields
}

func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Info(msg, fieldsWithTrace(ctx, fields...)...)
}
func ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Error(msg, fieldsWithTrace(ctx, fields...)...)
}
func WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Warn(msg, fieldsWithTrace(ctx, fields...)...)
}
func DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Debug(msg, fieldsWithTrace(ctx, fields...)...)
}
