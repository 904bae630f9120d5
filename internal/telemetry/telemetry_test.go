package telemetry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWritesJSONToFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	dir := filepath.Join(t.TempDir(), "logs")
	logger, cleanup, err := InitLogger(dir, true)
	require.NoError(t, err)

	logger.Debug("leaf check", "key", "value")
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "leafscan.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"leaf check"`)
	assert.Contains(t, string(data), `"service":"leafscan"`)
}

func TestInitTelemetryCreatesProviders(t *testing.T) {
	dir := t.TempDir()
	tracer, meter, cleanup, err := InitTelemetry(context.Background(), dir)
	require.NoError(t, err)
	defer cleanup()

	_, span := tracer.Start(context.Background(), "leaf check")
	span.End()

	counter, err := meter.Int64Counter("test.count")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}
