package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/flowgen/internal/adapters/file"
	"github.com/aretw0/flowgen/internal/adapters/redis"
	"github.com/aretw0/flowgen/internal/testutils"
	"github.com/aretw0/flowgen/pkg/adapters/memory"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/observability"
	"github.com/aretw0/flowgen/pkg/publish"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchedManifest = `
name: Watched
tools:
  - name: Inline
    functions: [first_step, second_step]
`

func TestParseFieldTypes(t *testing.T) {
	s, err := ParseFieldTypes([]string{"Retries:int", "Endpoint:path"})
	require.NoError(t, err)
	assert.Len(t, s, 2)

	s, err = ParseFieldTypes(nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = ParseFieldTypes([]string{"Retries"})
	assert.ErrorContains(t, err, "expected Name:type")

	_, err = ParseFieldTypes([]string{"Retries:nope"})
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory by default", func(t *testing.T) {
		store, closeFn, err := OpenStore(ctx, Options{})
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &memory.Store{}, store)
	})

	t.Run("Directory", func(t *testing.T) {
		dir := t.TempDir()
		store, closeFn, err := OpenStore(ctx, Options{StoreDir: dir})
		require.NoError(t, err)
		defer closeFn()
		require.IsType(t, &file.Store{}, store)
		assert.Equal(t, dir, store.(*file.Store).BasePath)
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, closeFn, err := OpenStore(ctx, Options{RedisAddr: mr.Addr()})
		require.NoError(t, err)
		defer closeFn()
		require.IsType(t, &redis.Store{}, store)

		flow := domain.NewFlowDefinition("stored")
		flow.StartAt = "Only"
		flow.AddState("Only", domain.NewState().Set("Type", "Pass").Set("End", true))
		require.NoError(t, store.Save(ctx, "demo", flow))

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"demo"}, names)
	})

	t.Run("Redis unreachable", func(t *testing.T) {
		_, closeFn, err := OpenStore(ctx, Options{RedisAddr: "127.0.0.1:1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis unreachable")
		assert.NoError(t, closeFn())
	})
}

func TestNewEnv(t *testing.T) {
	t.Run("Without tools", func(t *testing.T) {
		env, err := NewEnv(Options{})
		require.NoError(t, err)
		assert.NotNil(t, env.Generator)
		assert.NotNil(t, env.Logger)
		assert.Nil(t, env.Library)
	})

	t.Run("With tools directory", func(t *testing.T) {
		dir := t.TempDir()
		testutils.WriteFiles(t, dir, map[string]string{
			"mock.md": "---\nname: MockTool\nfunctions: [mock_func]\n---\n",
		})

		env, err := NewEnv(Options{ToolsPath: dir, Debug: true})
		require.NoError(t, err)
		require.NotNil(t, env.Library)

		names, err := env.Library.Names(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"MockTool"}, names)

		res, err := env.Generator.CompileDocument(context.Background(), []byte("name: C\ntools: [MockTool]\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"MockFunc"}, res.Flow.Names())
	})
}

func TestReadInputWriteOutput(t *testing.T) {
	data, err := ReadInput("-", strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(data))

	_, err = ReadInput(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read")

	var stdout bytes.Buffer
	require.NoError(t, WriteOutput("", &stdout, []byte("{}")))
	assert.Equal(t, "{}\n", stdout.String())

	path := filepath.Join(t.TempDir(), "out", "flow.json")
	require.NoError(t, WriteOutput(path, nil, []byte("{}")))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(written))
}

func TestWatcher_Reload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchedManifest), 0644))

	env, err := NewEnv(Options{})
	require.NoError(t, err)
	store := memory.NewStore()
	w := &Watcher{Env: env, ManifestPath: path, Out: &bytes.Buffer{}, Publisher: publish.NewManager(store), Name: "watched"}

	diff, err := w.Reload(ctx)
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, []string{"FirstStep", "SecondStep"}, diff.Added)

	saved, err := store.Load(ctx, "watched")
	require.NoError(t, err)
	assert.Equal(t, "FirstStep", saved.StartAt)

	diff, err = w.Reload(ctx)
	require.NoError(t, err)
	assert.Nil(t, diff)

	edited := watchedManifest + "modifiers:\n  second_step: {WaitTime: 900}\n"
	require.NoError(t, os.WriteFile(path, []byte(edited), 0644))
	diff, err = w.Reload(ctx)
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Empty(t, diff.Added)
	assert.Contains(t, diff.Changed, "SecondStep")

	require.NoError(t, os.WriteFile(path, []byte("name: Broken\n"), 0644))
	_, err = w.Reload(ctx)
	assert.Error(t, err)
	assert.Equal(t, "FirstStep", w.Flow().StartAt, "last good flow is kept")
}

func TestWatcher_ReportPrintsFlowThenDiff(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchedManifest), 0644))

	env, err := NewEnv(Options{})
	require.NoError(t, err)
	var out bytes.Buffer
	w := &Watcher{Env: env, ManifestPath: path, Out: &out}

	w.report(ctx)
	assert.Contains(t, out.String(), `"StartAt": "FirstStep"`)

	out.Reset()
	w.report(ctx)
	assert.Equal(t, ">>> No changes.\n", out.String())
}

func TestRunWatch_RequiresLibrary(t *testing.T) {
	env, err := NewEnv(Options{})
	require.NoError(t, err)

	err = RunWatch(context.Background(), &Watcher{Env: env, Out: &bytes.Buffer{}})
	assert.ErrorIs(t, err, ErrNotWatchable)
}

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sc := NewSignalContext(parent)
	cancel()

	<-sc.Done()
	assert.Nil(t, sc.Signal())
}

func TestNewEnv_MetricsHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	env, err := NewEnv(Options{Debug: true, Metrics: metrics})
	require.NoError(t, err)

	_, err = env.Generator.CompileDocument(context.Background(), []byte(watchedManifest))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Compilations))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.States))
}

func TestOpenStore_Middleware(t *testing.T) {
	ctx := context.Background()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	dir := t.TempDir()

	store, closeFn, err := OpenStore(ctx, Options{StoreDir: dir, Redact: []string{"token"}, StoreKey: key})
	require.NoError(t, err)
	defer closeFn()

	flow := domain.NewFlowDefinition("secret")
	flow.StartAt = "Only"
	flow.AddState("Only", domain.NewState().
		Set("Type", "Pass").
		Set("Parameters", map[string]any{"token": "abc"}).
		Set("End", true))
	require.NoError(t, store.Save(ctx, "secret", flow))

	raw, err := file.New(dir).Load(ctx, "secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"Encrypted"}, raw.Names())

	loaded, err := store.Load(ctx, "secret")
	require.NoError(t, err)
	params, _ := loaded.State("Only").Get("Parameters")
	assert.Equal(t, map[string]any{"token": "***"}, params)

	_, _, err = OpenStore(ctx, Options{StoreKey: "not base64!"})
	assert.ErrorContains(t, err, "invalid store key")
	_, _, err = OpenStore(ctx, Options{StoreKey: base64.StdEncoding.EncodeToString([]byte("short"))})
	assert.ErrorContains(t, err, "invalid store key")
	_, _, err = OpenStore(ctx, Options{Redact: []string{"("}})
	assert.Error(t, err)
}

func TestOpenPublisher_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	pub, closeFn, err := OpenPublisher(ctx, Options{RedisAddr: mr.Addr()}, createLogger(Options{}))
	require.NoError(t, err)
	defer closeFn()

	flow := domain.NewFlowDefinition("locked")
	flow.StartAt = "Only"
	flow.AddState("Only", domain.NewState().Set("Type", "Pass").Set("End", true))

	diff, err := pub.Publish(ctx, "locked", flow)
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, []string{"Only"}, diff.Added)
	assert.False(t, mr.Exists("flowgen:lock:locked"), "lock is released after publishing")

	_, _, err = OpenPublisher(ctx, Options{Redact: []string{"("}}, createLogger(Options{}))
	assert.Error(t, err)
}
