package domain

import "fmt"

// Selector picks the states a Modifier applies to.
// Exactly one field must be set.
type Selector struct {
	// ToolIndex matches every state contributed by the tool at this position.
	ToolIndex *int `json:"tool_index,omitempty" mapstructure:"tool_index"`
	// Tool matches every state contributed by tools with this name.
	Tool string `json:"tool,omitempty" mapstructure:"tool"`
	// State matches the state with this final (post-rename) name.
	State string `json:"state,omitempty" mapstructure:"state"`
	// Function matches every state invoking this remote function.
	Function string `json:"function,omitempty" mapstructure:"function"`
}

// Check returns an error unless exactly one selector field is set.
func (s Selector) Check() error {
	set := 0
	if s.ToolIndex != nil {
		set++
	}
	if s.Tool != "" {
		set++
	}
	if s.State != "" {
		set++
	}
	if s.Function != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one of tool_index, tool, state or function must be set (got %d)", ErrInvalidSelector, set)
	}
	return nil
}

// Matches reports whether the state named name, with the given origin, is selected.
func (s Selector) Matches(name string, origin Origin) bool {
	switch {
	case s.ToolIndex != nil:
		return origin.ToolIndex == *s.ToolIndex
	case s.Tool != "":
		return origin.Tool == s.Tool
	case s.State != "":
		return name == s.State
	case s.Function != "":
		return origin.Function == s.Function
	}
	return false
}

func (s Selector) String() string {
	switch {
	case s.ToolIndex != nil:
		return fmt.Sprintf("tool_index=%d", *s.ToolIndex)
	case s.Tool != "":
		return "tool=" + s.Tool
	case s.State != "":
		return "state=" + s.State
	case s.Function != "":
		return "function=" + s.Function
	}
	return "<empty>"
}

// Modifier is a declarative post-merge patch: Set maps field paths
// (e.g. "WaitTime" or "Parameters.tasks[0].endpoint.$") to override values.
type Modifier struct {
	Selector Selector       `json:"selector"`
	Set      map[string]any `json:"set"`
}

// ModifyFunction builds a modifier selecting a remote function.
func ModifyFunction(name string, set map[string]any) Modifier {
	return Modifier{Selector: Selector{Function: name}, Set: set}
}

// ModifyState builds a modifier selecting a state by its final name.
func ModifyState(name string, set map[string]any) Modifier {
	return Modifier{Selector: Selector{State: name}, Set: set}
}

// ModifyTool builds a modifier selecting a tool by name.
func ModifyTool(name string, set map[string]any) Modifier {
	return Modifier{Selector: Selector{Tool: name}, Set: set}
}

// ModifyToolIndex builds a modifier selecting a tool by position.
func ModifyToolIndex(index int, set map[string]any) Modifier {
	return Modifier{Selector: Selector{ToolIndex: &index}, Set: set}
}
