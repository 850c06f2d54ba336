package manifest

import (
	"context"
	"fmt"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
	"gopkg.in/yaml.v3"
)

// ToolSpec declares one tool instance. It is either a reference to a
// library tool (a bare string, or a mapping with ref) or an inline tool
// carrying functions or a flow definition.
type ToolSpec struct {
	Ref            string                 `yaml:"ref"`
	Name           string                 `yaml:"name"`
	Comment        string                 `yaml:"comment"`
	Functions      []domain.Function      `yaml:"functions"`
	FlowDefinition *domain.FlowDefinition `yaml:"flow_definition"`
}

// UnmarshalYAML accepts a scalar reference or a tool mapping.
// Function entries may be plain names or {name, doc} mappings.
func (t *ToolSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = ToolSpec{Ref: node.Value}
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("line %d: tool must be a name or a mapping", node.Line)
	}

	var raw struct {
		Ref            string                 `yaml:"ref"`
		Name           string                 `yaml:"name"`
		Comment        string                 `yaml:"comment"`
		Functions      []yaml.Node            `yaml:"functions"`
		FlowDefinition *domain.FlowDefinition `yaml:"flow_definition"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*t = ToolSpec{
		Ref:            raw.Ref,
		Name:           raw.Name,
		Comment:        raw.Comment,
		FlowDefinition: raw.FlowDefinition,
	}
	for _, fn := range raw.Functions {
		if fn.Kind == yaml.ScalarNode {
			t.Functions = append(t.Functions, domain.Function{Name: fn.Value})
			continue
		}
		var f domain.Function
		if err := fn.Decode(&f); err != nil {
			return fmt.Errorf("line %d: %w", fn.Line, err)
		}
		t.Functions = append(t.Functions, f)
	}
	return nil
}

func (t ToolSpec) check() error {
	inline := len(t.Functions) > 0 || t.FlowDefinition != nil
	switch {
	case t.Ref != "" && inline:
		return fmt.Errorf("ref %q cannot be combined with functions or flow_definition", t.Ref)
	case t.Ref == "" && !inline:
		return fmt.Errorf("%w: tool %q has neither ref, functions nor flow_definition", domain.ErrEmptyFlow, t.Name)
	}
	for i, fn := range t.Functions {
		if fn.Name == "" {
			return fmt.Errorf("%w: function %d has no name", domain.ErrInvalidName, i)
		}
	}
	return nil
}

func (t ToolSpec) resolve(ctx context.Context, lib ports.ToolLibrary) (*domain.Tool, error) {
	if t.Ref == "" {
		name := t.Name
		if name == "" {
			name = "inline"
		}
		return &domain.Tool{
			Name:           name,
			Comment:        t.Comment,
			Functions:      append([]domain.Function(nil), t.Functions...),
			FlowDefinition: t.FlowDefinition.Clone(),
		}, nil
	}
	if lib == nil {
		return nil, fmt.Errorf("%w: cannot resolve %q", ErrNoLibrary, t.Ref)
	}
	tool, err := lib.Tool(ctx, t.Ref)
	if err != nil {
		return nil, err
	}
	if t.Name != "" {
		tool.Name = t.Name
	}
	if t.Comment != "" {
		tool.Comment = t.Comment
	}
	return tool, nil
}
