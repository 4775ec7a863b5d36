package logger

import (
	"context"
)

// Logger 结构化日志接口，驱动观测装饰器和表结构缓存共用
//
// args 为交替出现的键值对，与 slog 的约定一致
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// Context 变体用于请求链路内的日志，保留调用方的 ctx
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	// With 派生携带固定字段的日志器，WithGroup 派生带分组前缀的日志器
	With(args ...any) Logger
	WithGroup(name string) Logger
}
