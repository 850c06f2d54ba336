package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/xeipuuv/gojsonschema"
)

// documentSchema describes the shape of a flow definition document.
const documentSchema = `{
  "type": "object",
  "required": ["StartAt", "States"],
  "properties": {
    "Comment": {"type": "string"},
    "StartAt": {"type": "string", "minLength": 1},
    "States": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["Type"],
        "properties": {
          "Type": {"type": "string", "minLength": 1},
          "Comment": {"type": "string"},
          "Next": {"type": "string", "minLength": 1},
          "End": {"type": "boolean"},
          "ActionUrl": {"type": "string"},
          "ActionScope": {"type": "string"},
          "ExceptionOnActionFailure": {"type": "boolean"},
          "Parameters": {"type": "object"},
          "ResultPath": {"type": "string", "pattern": "^\\$"},
          "InputPath": {"type": "string", "pattern": "^\\$"},
          "WaitTime": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// ValidateDocument checks a JSON flow document against the document schema
// and then its Next chain.
func ValidateDocument(data []byte) error {
	problems, err := CheckDocument(data)
	if err != nil {
		return err
	}
	return report(problems)
}

// CheckDocument returns the schema problems of a JSON flow document or,
// when it is well formed, its structural problems. The error is reserved
// for documents that cannot be read at all.
func CheckDocument(data []byte) ([]string, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return problems, nil
	}

	var flow domain.FlowDefinition
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Check(&flow), nil
}

// ValidateFlow checks that a flow is a single linear chain: StartAt exists,
// every Next resolves, exactly one state is terminal and every state is
// reached from StartAt without cycles.
func ValidateFlow(flow *domain.FlowDefinition) error {
	return report(Check(flow))
}

// Check returns the structural problems of flow, in a stable order.
func Check(flow *domain.FlowDefinition) []string {
	if flow.Len() == 0 {
		return []string{"flow has no states"}
	}

	var problems []string
	terminals := 0
	for pair := flow.States.Oldest(); pair != nil; pair = pair.Next() {
		name, st := pair.Key, pair.Value
		next := st.Next()
		switch {
		case next != "" && st.End():
			problems = append(problems, fmt.Sprintf("state '%s' has both Next and End", name))
		case next != "" && !flow.Has(next):
			problems = append(problems, fmt.Sprintf("state '%s' points to missing state '%s'", name, next))
		case next == "" && !st.End():
			problems = append(problems, fmt.Sprintf("state '%s' has neither Next nor End", name))
		}
		if st.End() {
			terminals++
		}
	}
	if terminals != 1 {
		problems = append(problems, fmt.Sprintf("expected exactly one terminal state, found %d", terminals))
	}

	if flow.StartAt == "" {
		return append(problems, "StartAt is not set")
	}
	if !flow.Has(flow.StartAt) {
		return append(problems, fmt.Sprintf("StartAt '%s' does not name a state", flow.StartAt))
	}

	visited := make(map[string]bool, flow.Len())
	for name := flow.StartAt; name != "" && flow.Has(name); name = flow.State(name).Next() {
		if visited[name] {
			problems = append(problems, fmt.Sprintf("cycle detected at state '%s'", name))
			break
		}
		visited[name] = true
	}
	for _, name := range flow.Names() {
		if !visited[name] {
			problems = append(problems, fmt.Sprintf("state '%s' is unreachable from '%s'", name, flow.StartAt))
		}
	}
	return problems
}

func report(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
}
