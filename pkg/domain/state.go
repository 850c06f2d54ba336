package domain

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// State is a single node of a flow definition.
//
// Fields are kept in an ordered map so that encoding a State reproduces the
// key order it was built or decoded with. Only the fields the compiler needs
// (Next, End, ResultPath) have typed accessors; everything else is carried
// as opaque JSON-compatible values.
type State struct {
	fields *orderedmap.OrderedMap[string, any]
}

// NewState creates an empty state.
func NewState() *State {
	return &State{fields: orderedmap.New[string, any]()}
}

func (s *State) ensure() {
	if s.fields == nil {
		s.fields = orderedmap.New[string, any]()
	}
}

// Get returns the raw value of a top-level field.
func (s *State) Get(key string) (any, bool) {
	if s == nil || s.fields == nil {
		return nil, false
	}
	return s.fields.Get(key)
}

// Set assigns a top-level field. Existing keys keep their position.
func (s *State) Set(key string, value any) *State {
	s.ensure()
	s.fields.Set(key, value)
	return s
}

// Delete removes a top-level field.
func (s *State) Delete(key string) {
	if s.fields != nil {
		s.fields.Delete(key)
	}
}

// Keys returns the field names in order.
func (s *State) Keys() []string {
	if s == nil || s.fields == nil {
		return nil
	}
	keys := make([]string, 0, s.fields.Len())
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of fields.
func (s *State) Len() int {
	if s == nil || s.fields == nil {
		return 0
	}
	return s.fields.Len()
}

func (s *State) stringField(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Type returns the state type tag (e.g. "Action").
func (s *State) Type() string { return s.stringField(FieldType) }

// Comment returns the free-text comment.
func (s *State) Comment() string { return s.stringField(FieldComment) }

// Next returns the name of the following state, or "" when unset.
func (s *State) Next() string { return s.stringField(FieldNext) }

// ResultPath returns the path reference this state's output is written to.
func (s *State) ResultPath() string { return s.stringField(FieldResultPath) }

// End reports whether the state carries the terminal marker.
func (s *State) End() bool {
	v, ok := s.Get(FieldEnd)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// SetNext links the state to target and clears any terminal marker.
func (s *State) SetNext(target string) {
	s.Delete(FieldEnd)
	s.Set(FieldNext, target)
}

// SetEnd marks the state as terminal and clears any Next pointer.
func (s *State) SetEnd() {
	s.Delete(FieldNext)
	s.Set(FieldEnd, true)
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := NewState()
	if s == nil || s.fields == nil {
		return out
	}
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		out.fields.Set(pair.Key, CopyValue(pair.Value))
	}
	return out
}

// MarshalJSON encodes the fields in insertion order.
func (s *State) MarshalJSON() ([]byte, error) {
	if s == nil || s.fields == nil {
		return []byte("{}"), nil
	}
	return s.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (s *State) UnmarshalJSON(data []byte) error {
	s.fields = orderedmap.New[string, any]()
	if err := s.fields.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	return nil
}

// UnmarshalYAML decodes a YAML mapping, keeping its key order.
func (s *State) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: state must be a mapping", node.Line)
	}
	s.fields = orderedmap.New[string, any]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("line %d: field %q: %w", node.Content[i].Line, node.Content[i].Value, err)
		}
		s.fields.Set(node.Content[i].Value, value)
	}
	return nil
}

// CopyValue deep-copies JSON-like values (maps, slices and scalars).
// Unknown composite types are returned as-is.
func CopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CopyValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CopyValue(item)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case *State:
		return val.Clone()
	default:
		return v
	}
}
