package domain

import (
	"reflect"
)

// FlowDiff represents the changes between two flow definitions.
// It is designed to be serialized to JSON for review tooling.
type FlowDiff struct {
	// StartAt is set when the entry state changed.
	StartAt *string `json:"start_at,omitempty"`

	// Comment is set when the flow comment changed.
	Comment *string `json:"comment,omitempty"`

	// Added lists states present only in the new flow, in its order.
	Added []string `json:"added,omitempty"`

	// Removed lists states present only in the old flow, in its order.
	Removed []string `json:"removed,omitempty"`

	// Changed maps a state name to its field delta.
	// For deletions, the field is present with a nil value.
	Changed map[string]map[string]any `json:"changed,omitempty"`
}

// Diff calculates the difference between oldFlow and newFlow.
// If oldFlow is nil, every state of newFlow is reported as added.
// It returns nil when the flows are equivalent.
func Diff(oldFlow, newFlow *FlowDefinition) *FlowDiff {
	if newFlow == nil {
		return nil
	}

	diff := &FlowDiff{}
	if oldFlow == nil || oldFlow.StartAt != newFlow.StartAt {
		diff.StartAt = &newFlow.StartAt
	}
	if oldFlow != nil && oldFlow.Comment != newFlow.Comment {
		diff.Comment = &newFlow.Comment
	}

	for _, name := range newFlow.Names() {
		if !oldFlow.Has(name) {
			diff.Added = append(diff.Added, name)
			continue
		}
		if delta := diffFields(oldFlow.State(name), newFlow.State(name)); delta != nil {
			if diff.Changed == nil {
				diff.Changed = make(map[string]map[string]any)
			}
			diff.Changed[name] = delta
		}
	}
	for _, name := range oldFlow.Names() {
		if !newFlow.Has(name) {
			diff.Removed = append(diff.Removed, name)
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFields(old, new *State) map[string]any {
	delta := make(map[string]any)

	// Added or modified
	for _, k := range new.Keys() {
		newVal, _ := new.Get(k)
		oldVal, exists := old.Get(k)
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	// Deleted
	for _, k := range old.Keys() {
		if _, exists := new.Get(k); !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any changes.
func (d *FlowDiff) IsEmpty() bool {
	return d.StartAt == nil &&
		d.Comment == nil &&
		len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Changed) == 0
}
