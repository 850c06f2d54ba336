package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
)

// ToolFactory builds a fresh tool instance on every call.
type ToolFactory func() *domain.Tool

// Registry manages the available tools by name.
// It implements ports.ToolLibrary and is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ToolFactory),
	}
}

// Register adds a tool factory to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(name string, factory ToolFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = factory
}

// RegisterTool registers a snapshot of tool under its own name.
// Every lookup returns an independent copy.
func (r *Registry) RegisterTool(tool *domain.Tool) {
	snapshot := cloneTool(tool)
	r.Register(tool.Name, func() *domain.Tool {
		return cloneTool(snapshot)
	})
}

// Tool looks up a tool by name and builds it.
func (r *Registry) Tool(ctx context.Context, name string) (*domain.Tool, error) {
	r.mu.RLock()
	factory, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}
	tool := factory()
	if tool == nil {
		return nil, fmt.Errorf("%w: factory for %s returned nil", domain.ErrToolNotFound, name)
	}
	return tool, nil
}

// Names lists the registered tools, sorted.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func cloneTool(t *domain.Tool) *domain.Tool {
	out := *t
	out.Functions = append([]domain.Function(nil), t.Functions...)
	out.FlowDefinition = t.FlowDefinition.Clone()
	return &out
}

// Chain resolves tools from each library in turn. The first library that
// knows a name wins.
type Chain []ports.ToolLibrary

// Tool returns the tool from the first library that has it.
func (c Chain) Tool(ctx context.Context, name string) (*domain.Tool, error) {
	for _, lib := range c {
		tool, err := lib.Tool(ctx, name)
		if err == nil {
			return tool, nil
		}
		if !errors.Is(err, domain.ErrToolNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
}

// Names returns the union of all libraries' names, sorted.
func (c Chain) Names(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, lib := range c {
		libNames, err := lib.Names(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range libNames {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
