package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/pkg/adapters/memory"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mockManifest = `
name: MyClient
comment: Example Docs
tools:
  - name: MockTool
    functions: [{name: mock_func, doc: Mock function}]
  - name: MockTool
    functions: [mock_func]
`

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	opts = append([]Option{WithStore(store)}, opts...)
	srv := httptest.NewServer(NewHandler(flowgen.New(), opts...))
	t.Cleanup(srv.Close)
	return srv, store
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/yaml", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestCompile_MatchesLibrary(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/compile", mockManifest)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readAll(t, resp.Body)

	res, err := flowgen.New().CompileDocument(context.Background(), []byte(mockManifest))
	require.NoError(t, err)
	want, err := json.Marshal(res.Flow)
	require.NoError(t, err)
	assert.Equal(t, string(want)+"\n", body)
}

func TestCompile_SaveAndFlows(t *testing.T) {
	srv, store := newTestServer(t)

	resp := post(t, srv.URL+"/compile?name=client", mockManifest)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	saved, err := store.Load(context.Background(), "client")
	require.NoError(t, err)
	assert.Equal(t, []string{"MockFunc", "MockFunc2"}, saved.Names())

	listResp, err := http.Get(srv.URL + "/flows")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var names []string
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&names))
	assert.Equal(t, []string{"client"}, names)

	getResp, err := http.Get(srv.URL + "/flows/client")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var flow domain.FlowDefinition
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&flow))
	assert.Equal(t, "MockFunc", flow.StartAt)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/flows/client", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	missing, err := http.Get(srv.URL + "/flows/client")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCompile_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"bad manifest", "/compile", "tools: [X]", http.StatusBadRequest},
		{"unknown ref", "/compile", "name: A\ntools: [Missing]", http.StatusBadRequest},
		{"unknown selector", "/compile", "name: A\ntools: [{functions: [f]}]\nmodifiers: [{state: Nope, set: {WaitTime: 1}}]", http.StatusBadRequest},
		{"flow document passes through", "/compile", `{"StartAt":"A","States":{"A":{"Type":"Pass","Next":"B"}}}`, http.StatusOK},
		{"empty flow document", "/compile", `{"StartAt":"A","States":{}}`, http.StatusBadRequest},
		{"bad flow name", "/compile?name=../etc", mockManifest, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, readAll(t, resp.Body))
		})
	}
}

func TestGraph(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/graph", mockManifest)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readAll(t, resp.Body)
	assert.True(t, strings.HasPrefix(body, "graph TD\n"))
	assert.Contains(t, body, "MockFunc -.-> MockFunc2")
	assert.Contains(t, body, "class MockFunc2 renamed;")
}

func TestValidate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/validate", `{"StartAt":"A","States":{"A":{"Type":"Pass","Next":"B"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out ValidateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Valid)
	assert.NotEmpty(t, out.Errors)

	resp = post(t, srv.URL+"/validate", `{"StartAt":"A","States":{"A":{"Type":"Pass","End":true}}}`)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Valid)

	resp = post(t, srv.URL+"/validate", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthInfoAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "flowgen_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv, _ := newTestServer(t, WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, readAll(t, health.Body))
	health.Body.Close()

	info, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	assert.Contains(t, readAll(t, info.Body), flowgen.Version)
	info.Body.Close()

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Contains(t, readAll(t, metrics.Body), "flowgen_test_total 1")
	metrics.Body.Close()
}

func TestFlows_NoStore(t *testing.T) {
	srv := httptest.NewServer(NewHandler(flowgen.New()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/flows")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestSubscribeEvents(t *testing.T) {
	streams := NewStreamManager()
	store := memory.NewStore()
	srv := httptest.NewServer(NewHandler(flowgen.New(), WithStore(store), WithStreams(streams)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/flows/client/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}
	assert.Equal(t, "connected", nextData())
	assert.Equal(t, 1, streams.Subscribers("client"))

	post(t, srv.URL+"/compile?name=client", mockManifest)
	var diff domain.FlowDiff
	require.NoError(t, json.Unmarshal([]byte(nextData()), &diff))
	assert.Equal(t, []string{"MockFunc", "MockFunc2"}, diff.Added)

	post(t, srv.URL+"/compile?name=client", mockManifest+"modifiers: {mock_func: {WaitTime: 600}}\n")
	diff = domain.FlowDiff{}
	require.NoError(t, json.Unmarshal([]byte(nextData()), &diff))
	assert.Empty(t, diff.Added)
	assert.Equal(t, float64(600), diff.Changed["MockFunc"]["WaitTime"])
	assert.Equal(t, float64(600), diff.Changed["MockFunc2"]["WaitTime"])
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("flow")
	assert.Equal(t, 1, sm.Subscribers("flow"))

	sm.Broadcast("flow", "hello")
	assert.Equal(t, "hello", <-ch)

	cancel()
	assert.Equal(t, 0, sm.Subscribers("flow"))
	_, open := <-ch
	assert.False(t, open)
	sm.Broadcast("flow", "dropped")
}

func TestOpenAPI_Document(t *testing.T) {
	doc, err := Spec()
	require.NoError(t, err)
	for _, path := range []string{"/compile", "/graph", "/validate", "/flows", "/flows/{name}", "/flows/{name}/events"} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}

	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, readAll(t, resp.Body), "title: flowgen API")

	swagger, err := http.Get(srv.URL + "/swagger")
	require.NoError(t, err)
	defer swagger.Body.Close()
	assert.Contains(t, readAll(t, swagger.Body), "SwaggerUIBundle")
}

func TestOpenAPI_RequestValidation(t *testing.T) {
	srv, store := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"empty body", http.MethodPost, "/compile", "", http.StatusBadRequest},
		{"name too long", http.MethodPost, "/compile?name=" + strings.Repeat("a", 129), mockManifest, http.StatusBadRequest},
		{"hidden flow name", http.MethodGet, "/flows/.hidden", "", http.StatusBadRequest},
		{"hidden flow delete", http.MethodDelete, "/flows/.hidden", "", http.StatusBadRequest},
		{"valid name", http.MethodPost, "/compile?name=v1.client", mockManifest, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/yaml")
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode, readAll(t, resp.Body))
		})
	}

	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.client"}, names)
}
