// Package logger provides a structured, levelled logger built on log/slog.
//
// The key extension over plain slog is WithCtx: it returns the logger the
// request middleware stored in the context, already tagged with request_id,
// so every log line from a handler is correlated:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("payment declined", "order_ref", ref)
//	// → time=... level=INFO msg="payment declined" request_id=a1b2c3d4 order_ref=...
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shashiranjanraj/faultline/config"
)

var L *slog.Logger

func init() {
	L = slog.New(newConsoleHandler(os.Stdout, config.AppEnv(), ""))
	slog.SetDefault(L)
}

// Options configures Setup.
type Options struct {
	Env   string // "production" switches to JSON output
	Level string // debug | info | warn | error; empty picks a default per Env

	// Optional MongoDB sink. Records are fanned out to stdout and Mongo.
	MongoURI        string
	MongoDB         string
	MongoCollection string

	Output io.Writer // defaults to os.Stdout
}

// OptionsFromConfig reads logger settings from config.
func OptionsFromConfig() Options {
	return Options{
		Env:             config.AppEnv(),
		Level:           config.Get("LOG_LEVEL", ""),
		MongoURI:        config.Get("LOG_MONGO_URI", ""),
		MongoDB:         config.Get("LOG_MONGO_DB", "faultline"),
		MongoCollection: config.Get("LOG_MONGO_COLLECTION", "logs"),
	}
}

// Setup replaces L according to opts. The returned func flushes and closes
// the Mongo sink, if one was attached; it is never nil.
func Setup(opts Options) (func(), error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler = newConsoleHandler(out, opts.Env, opts.Level)
	closer := func() {}

	if opts.MongoURI != "" {
		mh, err := NewMongoHandler(opts.MongoURI, opts.MongoDB, opts.MongoCollection)
		if err != nil {
			return closer, fmt.Errorf("logger: mongo sink: %w", err)
		}
		handler = NewMultiHandler(handler, mh)
		closer = mh.Close
	}

	L = slog.New(handler)
	slog.SetDefault(L)
	return closer, nil
}

func newConsoleHandler(w io.Writer, env, level string) slog.Handler {
	prod := env == "production" || env == "prod"

	lvl := slog.LevelDebug
	if prod {
		lvl = slog.LevelInfo
	}
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if prod {
		return slog.NewJSONHandler(w, opts) // structured JSON for log aggregators
	}
	return slog.NewTextHandler(w, opts) // human-readable for dev
}

// ─────────────────────────────────────────────
// Context-aware logger
// ─────────────────────────────────────────────

// ctxKey is the unexported key used to store a per-request *slog.Logger.
type ctxKey struct{}

// WithCtx returns the per-request logger injected by the Logger middleware,
// or the base logger when ctx carries none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
// Called by the Logger middleware, not usually needed in application code.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// ─────────────────────────────────────────────
// Short-hand helpers (use base logger)
// ─────────────────────────────────────────────

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }

// LevelFor maps an HTTP status to the level its access-log line uses.
func LevelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
