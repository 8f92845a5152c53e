package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelmondragon/partnerhub-backend/pkg/env"
)

// Options configures the structured logger. Static fields are stamped on
// every entry, e.g. env and instance id.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Output      io.Writer
	Static      map[string]string
}

// Logger writes JSON lines through zerolog. Request-scoped fields travel in
// the context so services never need a logger per call.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(env.Get("PARTNERHUB_LOG_FORMAT", "json"), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	builder := zerolog.New(out).With().Timestamp().Str("service", opts.ServiceName)
	for k, v := range opts.Static {
		builder = builder.Str(k, v)
	}

	return &Logger{base: builder.Logger().Level(level), warnStack: opts.WarnStack}
}

// Nop discards everything.
func Nop() *Logger {
	return New(Options{ServiceName: "nop", Output: io.Discard, Level: zerolog.Disabled})
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if scoped, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			return scoped
		}
	}
	return l.base
}

func (l *Logger) with(ctx context.Context, apply func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, apply(l.from(ctx).With()).Logger())
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Interface(key, value)
	})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Fields(fields)
	})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithPartnerID(ctx context.Context, partnerID string) context.Context {
	return l.WithField(ctx, "partner_id", partnerID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	entry := l.from(ctx)
	entry.Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	entry := l.from(ctx)
	entry.Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	entry := l.from(ctx)
	event := entry.Warn()
	if l.warnStack {
		event = event.Str("stack", stack())
	}
	event.Msg(msg)
}

// Error always carries a stack trace.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	entry := l.from(ctx)
	entry.Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
