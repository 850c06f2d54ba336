package flowgen_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/manifest"
	"github.com/aretw0/flowgen/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockTool() *domain.Tool {
	return &domain.Tool{
		Name:      "MockTool",
		Comment:   "Mock Tool",
		Functions: []domain.Function{{Name: "mock_func", Doc: "Mock function"}},
	}
}

func threeStateTool() *domain.Tool {
	flow := domain.NewFlowDefinition("Three states")
	flow.StartAt = "StateOne"
	flow.AddState("StateOne", domain.NewState().Set("Type", "Pass").Set("ResultPath", "$.StateOne").Set("Next", "StateTwo"))
	flow.AddState("StateTwo", domain.NewState().Set("Type", "Pass").Set("Next", "StateThree"))
	flow.AddState("StateThree", domain.NewState().Set("Type", "Pass").Set("End", true))
	return &domain.Tool{Name: "MockToolThreeStates", FlowDefinition: flow}
}

func chain(flow *domain.FlowDefinition) []string {
	var out []string
	seen := map[string]bool{}
	for name := flow.StartAt; name != "" && !seen[name]; name = flow.State(name).Next() {
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func TestGenerateToolFlow(t *testing.T) {
	flow, err := flowgen.GenerateToolFlow(context.Background(), mockTool(), nil)
	require.NoError(t, err)

	data, err := json.Marshal(flow)
	require.NoError(t, err)
	assert.Equal(t, `{"Comment":"Mock Tool","StartAt":"MockFunc","States":{"MockFunc":{`+
		`"Comment":"Mock function","Type":"Action",`+
		`"ActionUrl":"https://api.funcx.org/automate",`+
		`"ActionScope":"https://auth.globus.org/scopes/facd7ccc-c5f4-42aa-916b-a0e270e2c2a9/automate2",`+
		`"ExceptionOnActionFailure":false,`+
		`"Parameters":{"tasks":[{"endpoint.$":"$.input.funcx_endpoint_compute","func.$":"$.input.mock_func_funcx_id","payload.$":"$.input"}]},`+
		`"ResultPath":"$.MockFunc","WaitTime":300,"End":true}}}`, string(data))
}

func TestGenerateToolFlow_ChainsFunctions(t *testing.T) {
	tool := &domain.Tool{
		Name:      "Pipeline",
		Functions: []domain.Function{{Name: "fetch_data"}, {Name: "run_model"}, {Name: "publish"}},
	}
	flow, err := flowgen.GenerateToolFlow(context.Background(), tool, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"FetchData", "RunModel", "Publish"}, flow.Names())
	assert.Equal(t, flow.Names(), chain(flow))
	assert.True(t, flow.State("Publish").End())
	assert.Empty(t, flow.State("FetchData").Comment())
}

func TestGenerateToolFlow_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := flowgen.GenerateToolFlow(ctx, &domain.Tool{Name: "Empty"}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyFlow)

	_, err = flowgen.GenerateToolFlow(ctx, &domain.Tool{Functions: []domain.Function{{Name: "bad-name"}}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = flowgen.GenerateToolFlow(ctx, nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyFlow)
}

func TestCombineToolFlows_DuplicateGeneratedTools(t *testing.T) {
	client := &domain.Client{
		Name:    "MyClient",
		Comment: "Example Docs",
		Tools:   []*domain.Tool{mockTool(), mockTool(), mockTool()},
	}
	flow, err := flowgen.CombineToolFlows(context.Background(), client, nil)
	require.NoError(t, err)

	assert.Equal(t, "Example Docs", flow.Comment)
	assert.Equal(t, []string{"MockFunc", "MockFunc2", "MockFunc3"}, flow.Names())
	assert.Equal(t, flow.Names(), chain(flow))
	assert.True(t, flow.State("MockFunc3").End())
	assert.Equal(t, "$.MockFunc2", flow.State("MockFunc2").ResultPath())
}

func TestCombineToolFlows_ThreeStateToolThreeTimes(t *testing.T) {
	client := &domain.Client{
		Name:  "Triple",
		Tools: []*domain.Tool{threeStateTool(), threeStateTool(), threeStateTool()},
	}
	flow, err := flowgen.CombineToolFlows(context.Background(), client, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"StateOne", "StateTwo", "StateThree",
		"StateOne2", "StateTwo2", "StateThree2",
		"StateOne3", "StateTwo3", "StateThree3",
	}, flow.Names())
	assert.Equal(t, []string{
		"StateOne", "StateTwo", "StateThree",
		"StateOne2", "StateTwo2", "StateThree2",
		"StateOne3", "StateTwo3", "StateThree3",
	}, chain(flow))
	assert.Equal(t, "$.StateOne3", flow.State("StateOne3").ResultPath())
}

func TestCombineToolFlows_ModifiersAcrossTools(t *testing.T) {
	client := &domain.Client{
		Name:  "Mixed",
		Tools: []*domain.Tool{mockTool(), threeStateTool(), mockTool()},
	}
	mods := []domain.Modifier{
		domain.ModifyFunction("mock_func", map[string]any{"endpoint": "funcx_endpoint_non_compute", "WaitTime": 600}),
		domain.ModifyToolIndex(1, map[string]any{"Comment": "second tool"}),
		domain.ModifyState("MockFunc2", map[string]any{"payload": "$.MockFunc.details"}),
	}
	res, err := flowgen.New().Combine(context.Background(), client, mods)
	require.NoError(t, err)
	flow := res.Flow

	for _, name := range []string{"MockFunc", "MockFunc2"} {
		st := flow.State(name)
		wait, _ := st.Get("WaitTime")
		assert.Equal(t, float64(600), wait, name)
		params, _ := st.Get("Parameters")
		task := params.(map[string]any)["tasks"].([]any)[0].(map[string]any)
		assert.Equal(t, "$.input.funcx_endpoint_non_compute", task["endpoint.$"], name)
	}

	params, _ := flow.State("MockFunc2").Get("Parameters")
	task := params.(map[string]any)["tasks"].([]any)[0].(map[string]any)
	assert.Equal(t, "$.MockFunc.details", task["payload.$"])

	for _, name := range []string{"StateOne", "StateTwo", "StateThree"} {
		assert.Equal(t, "second tool", flow.State(name).Comment())
	}
	assert.Equal(t, "MockTool", res.Origins["MockFunc2"].Tool)
	assert.Equal(t, 2, res.Origins["MockFunc2"].ToolIndex)
}

func TestCombineToolFlows_DoesNotMutateTools(t *testing.T) {
	tool := threeStateTool()
	before, err := json.Marshal(tool.FlowDefinition)
	require.NoError(t, err)

	client := &domain.Client{Tools: []*domain.Tool{tool, tool}}
	_, err = flowgen.CombineToolFlows(context.Background(), client, []domain.Modifier{
		domain.ModifyTool("MockToolThreeStates", map[string]any{"WaitTime": 5}),
	})
	require.NoError(t, err)

	after, err := json.Marshal(tool.FlowDefinition)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestCombineToolFlows_Deterministic(t *testing.T) {
	client := &domain.Client{Tools: []*domain.Tool{mockTool(), threeStateTool(), mockTool(), threeStateTool()}}
	ctx := context.Background()

	first, err := flowgen.CombineToolFlows(ctx, client, nil)
	require.NoError(t, err)
	second, err := flowgen.CombineToolFlows(ctx, client, nil)
	require.NoError(t, err)

	a, err := flowgen.Marshal(first)
	require.NoError(t, err)
	b, err := flowgen.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, 8, first.Len())
}

func TestCombineToolFlows_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := flowgen.CombineToolFlows(ctx, &domain.Client{}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyFlow)

	_, err = flowgen.CombineToolFlows(ctx, &domain.Client{Tools: []*domain.Tool{mockTool()}}, []domain.Modifier{
		domain.ModifyFunction("nope", map[string]any{"WaitTime": 1}),
	})
	assert.ErrorIs(t, err, domain.ErrUnknownSelector)

	_, err = flowgen.CombineToolFlows(ctx, &domain.Client{Tools: []*domain.Tool{mockTool()}}, []domain.Modifier{
		domain.ModifyFunction("mock_func", map[string]any{"WaitTime": "soon"}),
	})
	require.Error(t, err)
}

func TestRoundTrip_PlainValues(t *testing.T) {
	flow := domain.NewFlowDefinition("rt")
	flow.StartAt = "A"
	flow.AddState("A", domain.NewState().Set("WaitTime", 10).Set("Tags", []string{"x"}).Set("End", true))

	out, err := flowgen.RoundTrip(flow)
	require.NoError(t, err)

	wait, _ := out.State("A").Get("WaitTime")
	assert.Equal(t, float64(10), wait)
	tags, _ := out.State("A").Get("Tags")
	assert.Equal(t, []any{"x"}, tags)
	assert.Equal(t, flow.Names(), out.Names())
}

func TestGenerator_Compile(t *testing.T) {
	lib := registry.NewRegistry()
	lib.Register("ThreeStates", threeStateTool)

	m, err := manifest.Parse([]byte(`
name: MyClient
comment: Example Docs
tools:
  - name: MockTool
    functions: [{name: mock_func, doc: Mock function}]
  - ThreeStates
modifiers:
  - tool: MockToolThreeStates
    set: {Retries: 3}
field_types:
  Retries: int
`))
	require.NoError(t, err)

	res, err := flowgen.New(flowgen.WithLibrary(lib)).Compile(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, []string{"MockFunc", "StateOne", "StateTwo", "StateThree"}, res.Flow.Names())
	retries, _ := res.Flow.State("StateTwo").Get("Retries")
	assert.Equal(t, float64(3), retries)

	bad, err := manifest.Parse([]byte("name: B\ntools: [ThreeStates]\nmodifiers: [{state: StateOne, set: {Retries: x}}]\nfield_types: {Retries: int}"))
	require.NoError(t, err)
	_, err = flowgen.New(flowgen.WithLibrary(lib)).Compile(context.Background(), bad)
	assert.Error(t, err)
}

func TestGenerator_Hooks(t *testing.T) {
	var renamed, modified, compiled int
	gen := flowgen.New(flowgen.WithHooks(domain.CompileHooks{
		OnRename:   func(context.Context, *domain.RenameEvent) { renamed++ },
		OnModified: func(context.Context, *domain.ModifiedEvent) { modified++ },
		OnCompiled: func(context.Context, *domain.CompiledEvent) { compiled++ },
	}))

	_, err := gen.CombineToolFlows(context.Background(), &domain.Client{Tools: []*domain.Tool{mockTool(), mockTool()}}, []domain.Modifier{
		domain.ModifyFunction("mock_func", map[string]any{"WaitTime": 1}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, renamed)
	assert.Equal(t, 2, modified)
	assert.Equal(t, 1, compiled)
}

func TestCompileDocument(t *testing.T) {
	gen := flowgen.New()
	ctx := context.Background()

	flowDoc := []byte(`{"Comment":"c","StartAt":"B","States":{"B":{"Type":"Pass","Next":"A"},"A":{"Type":"Pass","End":true}}}`)
	assert.True(t, flowgen.IsFlowDocument(flowDoc))
	res, err := gen.CompileDocument(ctx, flowDoc)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, res.Flow.Names())
	assert.Nil(t, res.Origins)

	manifestDoc := []byte("name: M\ntools:\n  - functions: [mock_func]\n  - functions: [mock_func]\n")
	assert.False(t, flowgen.IsFlowDocument(manifestDoc))
	res, err = gen.CompileDocument(ctx, manifestDoc)
	require.NoError(t, err)
	assert.Equal(t, []string{"MockFunc", "MockFunc2"}, res.Flow.Names())
	assert.Equal(t, "MockFunc", res.Origins["MockFunc2"].OriginalName)

	_, err = gen.CompileDocument(ctx, []byte("tools: [X]"))
	assert.ErrorIs(t, err, flowgen.ErrInvalidDocument)
	assert.ErrorContains(t, err, "manifest")

	_, err = gen.CompileDocument(ctx, []byte(`{"StartAt":"A","States":{}}`))
	assert.ErrorIs(t, err, flowgen.ErrInvalidDocument)
	assert.ErrorIs(t, err, domain.ErrEmptyFlow)
}
