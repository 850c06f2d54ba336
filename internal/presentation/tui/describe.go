package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowgen/pkg/domain"
)

// Describe summarizes a compiled flow as a Markdown document: one table row
// per state, in Next-chain order, with its contributing tool and function.
func Describe(name string, flow *domain.FlowDefinition, origins map[string]domain.Origin) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)
	if flow.Comment != "" {
		fmt.Fprintf(&sb, "%s\n\n", flow.Comment)
	}
	fmt.Fprintf(&sb, "**%d states**, starting at `%s`.\n\n", flow.Len(), flow.StartAt)

	sb.WriteString("| # | State | Type | Tool | Function | Renamed from | Wait |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")

	seen := make(map[string]bool, flow.Len())
	i := 0
	for name := flow.StartAt; name != "" && flow.Has(name) && !seen[name]; name = flow.State(name).Next() {
		seen[name] = true
		i++
		st := flow.State(name)
		o := origins[name]

		renamed := ""
		if o.OriginalName != "" && o.OriginalName != name {
			renamed = "`" + o.OriginalName + "`"
		}
		wait := ""
		if v, ok := st.Get(domain.FieldWaitTime); ok {
			wait = fmt.Sprintf("%vs", v)
		}
		fmt.Fprintf(&sb, "| %d | `%s` | %s | %s | %s | %s | %s |\n",
			i, name, st.Type(), o.Tool, o.Function, renamed, wait)
	}
	return sb.String()
}
