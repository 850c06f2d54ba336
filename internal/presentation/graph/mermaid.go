package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowgen/pkg/domain"
)

// Overlay marks states to highlight on the graph.
type Overlay struct {
	// Renamed lists states whose names were suffixed during compilation.
	Renamed []string
	// Current is a single state to emphasize.
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of a flow's Next chain.
// It applies semantic styling:
// - StartAt: ((Circle))
// - Action: [[Subroutine]]
// - End: ([Stadium])
// - Default: [Rectangle]
// Edges between states contributed by different tools are dotted when
// origins are supplied.
func GenerateMermaid(flow *domain.FlowDefinition, origins map[string]domain.Origin, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range flow.Names() {
		st := flow.State(name)
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == flow.StartAt:
			opener, closer = "((", "))"
		case st.End():
			opener, closer = "([", "])"
		case st.Type() == domain.StateTypeAction:
			opener, closer = "[[", "]]"
		}

		label := name
		if wait, ok := st.Get(domain.FieldWaitTime); ok {
			label = fmt.Sprintf("%s <br/> ⏱️ %vs", name, wait)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		next := st.Next()
		if next == "" {
			continue
		}
		arrow := "-->"
		if from, ok := origins[name]; ok {
			if to, ok := origins[next]; ok && from.ToolIndex != to.ToolIndex {
				arrow = "-.->"
			}
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(next)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef renamed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.Renamed {
			safeID := sanitizeMermaidID(name)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s renamed;\n", safeID))
			}
		}
		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
	}

	return sb.String()
}

// RenamedStates lists, in flow order, the states whose final name differs
// from their original one.
func RenamedStates(flow *domain.FlowDefinition, origins map[string]domain.Origin) []string {
	var out []string
	for _, name := range flow.Names() {
		if o, ok := origins[name]; ok && o.OriginalName != name {
			out = append(out, name)
		}
	}
	return out
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
