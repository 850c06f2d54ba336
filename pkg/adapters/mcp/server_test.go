package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = "name: M\ntools:\n  - functions: [mock_func]\n  - functions: [mock_func]\n"

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestCompileFlow(t *testing.T) {
	s := NewServer(flowgen.New(), nil, nil)

	res, err := s.handleCompile(context.Background(), call(map[string]any{"document": manifest}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var flow domain.FlowDefinition
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &flow))
	assert.Equal(t, []string{"MockFunc", "MockFunc2"}, flow.Names())

	// Same bytes as the library call.
	lib, err := flowgen.New().CompileDocument(context.Background(), []byte(manifest))
	require.NoError(t, err)
	want, err := flowgen.Marshal(lib.Flow)
	require.NoError(t, err)
	assert.Equal(t, string(want), text(t, res))
}

func TestCompileFlow_Errors(t *testing.T) {
	s := NewServer(flowgen.New(), nil, nil)

	res, err := s.handleCompile(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleCompile(context.Background(), call(map[string]any{"document": "name: A\ntools: [Missing]"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "compile failed")
}

func TestRenderGraph(t *testing.T) {
	s := NewServer(flowgen.New(), nil, nil)

	res, err := s.handleGraph(context.Background(), call(map[string]any{"document": manifest}))
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "class MockFunc2 renamed;")
}

func TestValidateFlow(t *testing.T) {
	s := NewServer(flowgen.New(), nil, nil)
	ctx := context.Background()

	out, err := s.handleValidate(ctx, mcp.CallToolRequest{}, ValidateArgs{Flow: `{"StartAt":"A","States":{"A":{"Type":"Pass","End":true}}}`})
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Empty(t, out.Errors)

	out, err = s.handleValidate(ctx, mcp.CallToolRequest{}, ValidateArgs{Flow: `{"StartAt":"A","States":{"A":{"Type":"Pass","Next":"Z"}}}`})
	require.NoError(t, err)
	assert.False(t, out.Valid)

	_, err = s.handleValidate(ctx, mcp.CallToolRequest{}, ValidateArgs{})
	assert.Error(t, err)
}

func TestToolsResource(t *testing.T) {
	lib := registry.NewRegistry()
	lib.RegisterTool(&domain.Tool{Name: "B", Functions: []domain.Function{{Name: "b"}}})
	lib.RegisterTool(&domain.Tool{Name: "A", Functions: []domain.Function{{Name: "a"}}})
	s := NewServer(flowgen.New(), lib, nil)

	contents, err := s.readTools(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.JSONEq(t, `["A","B"]`, contents[0].(mcp.TextResourceContents).Text)

	empty, err := NewServer(flowgen.New(), nil, nil).readTools(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, empty[0].(mcp.TextResourceContents).Text)
}
