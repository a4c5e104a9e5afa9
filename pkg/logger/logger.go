package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger - структурированный логгер с парами ключ/значение
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New создает логгер на zap (JSON в stdout) через slog-zap
func New(level string) Logger {
	return newWithCore(newZapCore(zapcore.AddSync(os.Stdout), ParseLevel(level)))
}

// NewNop возвращает логгер, который ничего не пишет (для тестов)
func NewNop() Logger {
	return newWithCore(zapcore.NewNopCore())
}

func newWithCore(core zapcore.Core) Logger {
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	h := slogzap.Option{Level: slog.LevelDebug, Logger: z}.NewZapHandler()
	return &slogLogger{l: slog.New(h)}
}

func newZapCore(ws zapcore.WriteSyncer, lvl zapcore.Level) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, lvl)
}

// ParseLevel переводит строку из LOG_LEVEL в уровень zap, по умолчанию info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) Fatal(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelError, msg, args...)
	os.Exit(1)
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}
