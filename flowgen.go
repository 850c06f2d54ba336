package flowgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/flowgen/internal/compiler"
	"github.com/aretw0/flowgen/internal/logging"
	"github.com/aretw0/flowgen/internal/modifiers"
	loamAdapter "github.com/aretw0/flowgen/pkg/adapters/loam"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/dsl"
	"github.com/aretw0/flowgen/pkg/manifest"
	"github.com/aretw0/flowgen/pkg/naming"
	"github.com/aretw0/flowgen/pkg/ports"
	"github.com/aretw0/flowgen/pkg/schema"
	"github.com/aretw0/loam"
)

// Generator turns tools and clients into flow definitions.
// It holds only configuration and is safe for concurrent use.
type Generator struct {
	logger     *slog.Logger
	hooks      domain.CompileHooks
	library    ports.ToolLibrary
	fieldTypes schema.Schema
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the structured logger passed to the compiler and modifier layer.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithHooks registers compile lifecycle callbacks (e.g. metrics).
func WithHooks(hooks domain.CompileHooks) Option {
	return func(g *Generator) {
		g.hooks = hooks
	}
}

// WithLibrary sets the library used to resolve tool references in manifests.
func WithLibrary(lib ports.ToolLibrary) Option {
	return func(g *Generator) {
		g.library = lib
	}
}

// WithFieldTypes adds type checks for extra state fields set by modifiers.
func WithFieldTypes(fields schema.Schema) Option {
	return func(g *Generator) {
		g.fieldTypes = fields
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.NewNop()
	}
	return g
}

// Result is a generated flow plus the provenance of every state.
type Result struct {
	Flow    *domain.FlowDefinition
	Origins map[string]domain.Origin
}

// Library returns the configured tool library, or nil.
func (g *Generator) Library() ports.ToolLibrary {
	return g.library
}

// GenerateToolFlow builds the flow of a single tool from its functions.
// Each function becomes one Action state, chained in declaration order.
func (g *Generator) GenerateToolFlow(ctx context.Context, tool *domain.Tool, mods []domain.Modifier) (*domain.FlowDefinition, error) {
	if tool == nil {
		return nil, fmt.Errorf("failed to generate tool flow: %w", domain.ErrEmptyFlow)
	}
	src, err := functionSources(tool, 0)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
	}
	res, err := g.build(ctx, src, tool.Comment, mods, nil)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
	}
	return res.Flow, nil
}

// CombineToolFlows compiles every tool of the client, in order, into one flow.
// Tools without a FlowDefinition have theirs generated from Functions.
func (g *Generator) CombineToolFlows(ctx context.Context, client *domain.Client, mods []domain.Modifier) (*domain.FlowDefinition, error) {
	res, err := g.Combine(ctx, client, mods)
	if err != nil {
		return nil, err
	}
	return res.Flow, nil
}

// Combine is CombineToolFlows returning state provenance as well.
func (g *Generator) Combine(ctx context.Context, client *domain.Client, mods []domain.Modifier) (*Result, error) {
	return g.combine(ctx, client, mods, nil)
}

// Compile resolves a manifest against the configured library and combines it.
func (g *Generator) Compile(ctx context.Context, m *manifest.Manifest) (*Result, error) {
	client, err := m.Resolve(ctx, g.library)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", m.Name, err)
	}
	fields, err := m.FieldSchema()
	if err != nil {
		return nil, err
	}
	return g.combine(ctx, client, m.Modifiers, fields)
}

func (g *Generator) combine(ctx context.Context, client *domain.Client, mods []domain.Modifier, fields schema.Schema) (*Result, error) {
	if client == nil || len(client.Tools) == 0 {
		return nil, fmt.Errorf("failed to combine tool flows: %w", domain.ErrEmptyFlow)
	}

	var sources []compiler.Source
	for i, tool := range client.Tools {
		if tool == nil {
			return nil, fmt.Errorf("tool %d: %w", i, domain.ErrEmptyFlow)
		}
		if tool.FlowDefinition == nil {
			src, err := functionSources(tool, i)
			if err != nil {
				return nil, fmt.Errorf("tool %d (%s): %w", i, tool.Name, err)
			}
			sources = append(sources, src...)
			continue
		}
		sources = append(sources, compiler.Source{
			Flow:      tool.FlowDefinition,
			Tool:      tool.Name,
			ToolIndex: i,
			Functions: functionNames(tool.Functions),
		})
	}

	res, err := g.build(ctx, sources, client.Comment, mods, fields)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", client.Name, err)
	}
	return res, nil
}

// build compiles, applies modifiers and normalizes the flow through JSON.
func (g *Generator) build(ctx context.Context, sources []compiler.Source, comment string, mods []domain.Modifier, fields schema.Schema) (*Result, error) {
	c := compiler.New(compiler.WithLogger(g.logger), compiler.WithHooks(g.hooks))
	res, err := c.CompileSources(ctx, sources, comment)
	if err != nil {
		return nil, err
	}

	applier := modifiers.New(
		modifiers.WithLogger(g.logger),
		modifiers.WithHooks(g.hooks),
		modifiers.WithFieldTypes(g.fieldTypes.Merge(fields)),
	)
	if err := applier.Apply(ctx, res.Flow, res.Origins, mods); err != nil {
		return nil, err
	}

	flow, err := RoundTrip(res.Flow)
	if err != nil {
		return nil, err
	}
	return &Result{Flow: flow, Origins: res.Origins}, nil
}

// functionSources generates one single-state source flow per function.
func functionSources(tool *domain.Tool, toolIndex int) ([]compiler.Source, error) {
	flows, err := dsl.FunctionFlows(tool.Functions)
	if err != nil {
		return nil, err
	}
	sources := make([]compiler.Source, len(flows))
	for i, flow := range flows {
		fn := tool.Functions[i].Name
		sources[i] = compiler.Source{
			Flow:      flow,
			Tool:      tool.Name,
			ToolIndex: toolIndex,
			Functions: map[string]string{naming.StateName(fn): fn},
		}
	}
	return sources, nil
}

// functionNames maps derived state names to function names so function
// selectors also reach hand-authored states named after their function.
func functionNames(fns []domain.Function) map[string]string {
	if len(fns) == 0 {
		return nil
	}
	out := make(map[string]string, len(fns))
	for _, fn := range fns {
		out[naming.StateName(fn.Name)] = fn.Name
	}
	return out
}

// RoundTrip encodes flow to JSON and decodes it back, leaving only plain
// JSON values (strings, float64, bool, nil, maps and slices) in the states.
func RoundTrip(flow *domain.FlowDefinition) (*domain.FlowDefinition, error) {
	data, err := json.Marshal(flow)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flow: %w", err)
	}
	out := &domain.FlowDefinition{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to decode flow: %w", err)
	}
	return out, nil
}

// Marshal encodes a flow as indented JSON.
func Marshal(flow *domain.FlowDefinition) ([]byte, error) {
	return json.MarshalIndent(flow, "", "  ")
}

// OpenLibrary opens a directory of tool documents as a read-only library.
func OpenLibrary(path string) (*loamAdapter.Library, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode yields json.Number for numbers in every document format.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return loamAdapter.New(loam.NewTypedRepository[loamAdapter.ToolMetadata](repo)), nil
}

var defaultGenerator = New()

// GenerateToolFlow generates a tool's flow with default settings.
func GenerateToolFlow(ctx context.Context, tool *domain.Tool, mods []domain.Modifier) (*domain.FlowDefinition, error) {
	return defaultGenerator.GenerateToolFlow(ctx, tool, mods)
}

// CombineToolFlows combines a client's tool flows with default settings.
func CombineToolFlows(ctx context.Context, client *domain.Client, mods []domain.Modifier) (*domain.FlowDefinition, error) {
	return defaultGenerator.CombineToolFlows(ctx, client, mods)
}
