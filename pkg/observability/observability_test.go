package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockClient() *domain.Client {
	tool := &domain.Tool{Name: "MockTool", Functions: []domain.Function{{Name: "mock_func"}}}
	return &domain.Client{Name: "c", Tools: []*domain.Tool{tool, tool, tool}}
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	gen := flowgen.New(flowgen.WithHooks(m.Hooks()))
	_, err = gen.CombineToolFlows(context.Background(), mockClient(), []domain.Modifier{
		domain.ModifyFunction("mock_func", map[string]any{"WaitTime": 10}),
		domain.ModifyState("MockFunc3", map[string]any{"WaitTime": 20}),
	})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Compilations))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.States))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Renames))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Modified.WithLabelValues("function")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Modified.WithLabelValues("state")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CompileSeconds))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)
	ctx := context.Background()

	hooks.OnRename(ctx, &domain.RenameEvent{FlowIndex: 1, OriginalName: "X", FinalName: "X2"})
	hooks.OnCompiled(ctx, &domain.CompiledEvent{Flows: 2, States: 2, Renamed: 1, Duration: time.Millisecond})

	out := buf.String()
	assert.Contains(t, out, "msg=state_renamed flow=1 from=X to=X2")
	assert.Contains(t, out, "msg=flow_compiled flows=2 states=2 renamed=1")
}

func TestHooks_Merge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	hooks := m.Hooks().Merge(observability.LoggingHooks(logger))

	_, err = flowgen.New(flowgen.WithHooks(hooks)).CombineToolFlows(context.Background(), mockClient(), nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Compilations))
	assert.Contains(t, buf.String(), "flow_compiled")
}
