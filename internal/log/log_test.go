package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/ncradle/GuiTimeoutSample/internal/log"
	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(&buf, "json", false)

	parent := log.ContextAttrs(context.Background(), slog.String("cmd", "run"))
	child := log.ContextAttrs(parent, slog.String("run_id", "42"))

	logger.InfoContext(child, "process start")
	logger.InfoContext(parent, "process end")
	logger.DebugContext(child, "hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	require.Equal(t, "process start", first["msg"])
	require.Equal(t, "run", first["cmd"])
	require.Equal(t, "42", first["run_id"])

	require.Equal(t, "run", second["cmd"])
	require.NotContains(t, second, "run_id")
}

func TestNewText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(&buf, "text", true).With("component", "test")
	ctx := log.ContextAttrs(t.Context(), slog.String("stage", "middle"))
	logger.DebugContext(ctx, "stage starts")

	out := buf.String()
	require.Contains(t, out, "level=DEBUG")
	require.Contains(t, out, "component=test")
	require.Contains(t, out, "stage=middle")
}
