package loam

// ToolMetadata is the frontmatter of a tool document.
//
//	---
//	name: MockToolThreeStates
//	comment: Three chained steps
//	start_at: StateOne
//	states:
//	  - name: StateOne
//	    Type: Pass
//	    Next: StateTwo
//	  ...
//	---
//
// Either functions or states is set. Functions entries are function names
// or {name, doc} mappings. When comment is empty, the document body is used.
type ToolMetadata struct {
	Name      string           `json:"name" mapstructure:"name"`
	Comment   string           `json:"comment" mapstructure:"comment"`
	Functions []any            `json:"functions" mapstructure:"functions"`
	StartAt   string           `json:"start_at" mapstructure:"start_at"`
	States    []map[string]any `json:"states" mapstructure:"states"`
}
