package domain

// Function describes a remote function invoked by a generated state.
// Only its name and documentation are inspected.
type Function struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Doc  string `json:"doc,omitempty" yaml:"doc,omitempty" mapstructure:"doc"`
}

// Tool contributes one or more states to a flow.
//
// A tool either carries a hand-authored FlowDefinition or a list of
// Functions from which the definition is generated.
type Tool struct {
	Name           string
	Comment        string
	Functions      []Function
	FlowDefinition *FlowDefinition
}

// Client is an ordered aggregation of tools whose flows are compiled into one.
// The same tool may appear more than once.
type Client struct {
	Name    string
	Comment string
	Tools   []*Tool
}

// Origin records where a state of a compiled flow came from.
type Origin struct {
	// FlowIndex is the position of the source flow in the compile input.
	FlowIndex int `json:"flow_index"`
	// ToolIndex is the position of the contributing tool in its client.
	ToolIndex int `json:"tool_index"`
	// Tool is the contributing tool's name, if known.
	Tool string `json:"tool,omitempty"`
	// OriginalName is the state name before collision renaming.
	OriginalName string `json:"original_name"`
	// Function is the remote function the state invokes, if known.
	Function string `json:"function,omitempty"`
}
