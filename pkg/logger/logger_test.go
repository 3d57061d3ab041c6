package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/pkg/logger"
)

func TestSetupProductionWritesJSON(t *testing.T) {
	prev := logger.L
	defer func() { logger.L = prev; slog.SetDefault(prev) }()

	var buf bytes.Buffer
	closeFn, err := logger.Setup(logger.Options{Env: "production", Output: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hello", "k", "v")
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, logger.L, logger.WithCtx(context.Background()))

	tagged := logger.L.With("request_id", "abc")
	ctx := logger.InjectLogger(context.Background(), tagged)
	assert.Same(t, tagged, logger.WithCtx(ctx))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := logger.NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h).With("request_id", "r1")
	log.Info("only a")
	log.Error("both")

	assert.Contains(t, a.String(), "only a")
	assert.Contains(t, a.String(), "request_id=r1")
	assert.NotContains(t, b.String(), "only a")
	assert.Contains(t, b.String(), "both")
}
