package manifest

import (
	"fmt"
	"sort"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Modifiers is the manifest's modifier list. It decodes from either
//
//	modifiers:
//	  - function: mock_func
//	    set: {WaitTime: 600}
//
// or the compact form keyed by function name:
//
//	modifiers:
//	  mock_func: {endpoint: funcx_endpoint_non_compute}
type Modifiers []domain.Modifier

type modifierEntry struct {
	ToolIndex *int           `mapstructure:"tool_index"`
	Tool      string         `mapstructure:"tool"`
	State     string         `mapstructure:"state"`
	Function  string         `mapstructure:"function"`
	Set       map[string]any `mapstructure:"set"`
}

func (m *Modifiers) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []map[string]any
		if err := node.Decode(&items); err != nil {
			return err
		}
		out := make(Modifiers, 0, len(items))
		for i, item := range items {
			mod, err := decodeModifier(item)
			if err != nil {
				return fmt.Errorf("modifier %d: %w", i, err)
			}
			out = append(out, mod)
		}
		*m = out
	case yaml.MappingNode:
		var byFunction map[string]map[string]any
		if err := node.Decode(&byFunction); err != nil {
			return err
		}
		names := make([]string, 0, len(byFunction))
		for name := range byFunction {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make(Modifiers, 0, len(names))
		for _, name := range names {
			out = append(out, domain.ModifyFunction(name, byFunction[name]))
		}
		*m = out
	default:
		return fmt.Errorf("line %d: modifiers must be a list or a mapping", node.Line)
	}
	return nil
}

func decodeModifier(item map[string]any) (domain.Modifier, error) {
	var entry modifierEntry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &entry,
	})
	if err != nil {
		return domain.Modifier{}, err
	}
	if err := dec.Decode(item); err != nil {
		return domain.Modifier{}, err
	}
	if len(entry.Set) == 0 {
		return domain.Modifier{}, fmt.Errorf("set must not be empty")
	}
	return domain.Modifier{
		Selector: domain.Selector{
			ToolIndex: entry.ToolIndex,
			Tool:      entry.Tool,
			State:     entry.State,
			Function:  entry.Function,
		},
		Set: entry.Set,
	}, nil
}
