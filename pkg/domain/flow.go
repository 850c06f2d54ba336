package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// States is the ordered mapping of state name to definition.
// Insertion order is the canonical linearization of a flow.
type States = orderedmap.OrderedMap[string, *State]

// NewStates creates an empty ordered state mapping.
func NewStates() *States {
	return orderedmap.New[string, *State]()
}

// FlowDefinition is the JSON state-machine document submitted to the
// orchestration service.
type FlowDefinition struct {
	Comment string
	StartAt string
	States  *States
}

// NewFlowDefinition creates an empty flow with the given comment.
func NewFlowDefinition(comment string) *FlowDefinition {
	return &FlowDefinition{
		Comment: comment,
		States:  NewStates(),
	}
}

// Len returns the number of states.
func (f *FlowDefinition) Len() int {
	if f == nil || f.States == nil {
		return 0
	}
	return f.States.Len()
}

// AddState appends (or replaces in place) a named state.
func (f *FlowDefinition) AddState(name string, state *State) {
	if f.States == nil {
		f.States = NewStates()
	}
	f.States.Set(name, state)
}

// State returns the named state, or nil.
func (f *FlowDefinition) State(name string) *State {
	if f == nil || f.States == nil {
		return nil
	}
	st, _ := f.States.Get(name)
	return st
}

// Has reports whether a state with the given name exists.
func (f *FlowDefinition) Has(name string) bool {
	if f == nil || f.States == nil {
		return false
	}
	_, ok := f.States.Get(name)
	return ok
}

// Names returns the state names in order.
func (f *FlowDefinition) Names() []string {
	if f.Len() == 0 {
		return nil
	}
	names := make([]string, 0, f.States.Len())
	for pair := f.States.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// First returns the name of the first state in insertion order.
func (f *FlowDefinition) First() string {
	if f.Len() == 0 {
		return ""
	}
	return f.States.Oldest().Key
}

// Clone deep-copies the flow.
func (f *FlowDefinition) Clone() *FlowDefinition {
	if f == nil {
		return nil
	}
	out := &FlowDefinition{
		Comment: f.Comment,
		StartAt: f.StartAt,
		States:  NewStates(),
	}
	if f.States == nil {
		return out
	}
	for pair := f.States.Oldest(); pair != nil; pair = pair.Next() {
		out.States.Set(pair.Key, pair.Value.Clone())
	}
	return out
}

// MarshalJSON writes Comment, StartAt and States in that order.
func (f *FlowDefinition) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"Comment":`)
	comment, err := json.Marshal(f.Comment)
	if err != nil {
		return nil, err
	}
	buf.Write(comment)

	buf.WriteString(`,"StartAt":`)
	start, err := json.Marshal(f.StartAt)
	if err != nil {
		return nil, err
	}
	buf.Write(start)

	buf.WriteString(`,"States":`)
	if f.States == nil {
		buf.WriteString("{}")
	} else {
		states, err := f.States.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode states: %w", err)
		}
		buf.Write(states)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flow document, preserving the order of States.
func (f *FlowDefinition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Comment string          `json:"Comment"`
		StartAt string          `json:"StartAt"`
		States  json.RawMessage `json:"States"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode flow definition: %w", err)
	}

	f.Comment = raw.Comment
	f.StartAt = raw.StartAt
	f.States = NewStates()
	if len(raw.States) == 0 || string(raw.States) == "null" {
		return nil
	}
	if err := f.States.UnmarshalJSON(raw.States); err != nil {
		return fmt.Errorf("failed to decode states: %w", err)
	}
	return nil
}

// UnmarshalYAML decodes a flow document from YAML, preserving the order of States.
func (f *FlowDefinition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: flow definition must be a mapping", node.Line)
	}
	f.States = NewStates()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "Comment":
			f.Comment = value.Value
		case "StartAt":
			f.StartAt = value.Value
		case "States":
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: States must be a mapping", value.Line)
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				st := &State{}
				if err := value.Content[j+1].Decode(st); err != nil {
					return fmt.Errorf("state %q: %w", value.Content[j].Value, err)
				}
				f.States.Set(value.Content[j].Value, st)
			}
		default:
			return fmt.Errorf("line %d: unknown flow definition key %q", key.Line, key.Value)
		}
	}
	return nil
}
