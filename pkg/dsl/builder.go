package dsl

import (
	"fmt"

	"github.com/aretw0/flowgen/pkg/domain"
)

// Builder manages the construction of a flow definition.
// States are kept in the order they are first added.
type Builder struct {
	comment string
	startAt string
	states  *domain.States
}

// New creates a new flow builder.
func New(comment string) *Builder {
	return &Builder{
		comment: comment,
		states:  domain.NewStates(),
	}
}

// Add creates a new state in the flow.
// If the state already exists, it returns a builder for the existing state.
func (b *Builder) Add(name string) *StateBuilder {
	st, ok := b.states.Get(name)
	if !ok {
		st = domain.NewState()
		b.states.Set(name, st)
	}
	return &StateBuilder{name: name, state: st, builder: b}
}

// StartAt sets the entry state. Defaults to the first state added.
func (b *Builder) StartAt(name string) *Builder {
	b.startAt = name
	return b
}

// Build returns the flow definition. The builder must not be reused afterwards.
func (b *Builder) Build() (*domain.FlowDefinition, error) {
	if b.states.Len() == 0 {
		return nil, fmt.Errorf("failed to build flow: %w", domain.ErrEmptyFlow)
	}

	flow := &domain.FlowDefinition{
		Comment: b.comment,
		StartAt: b.startAt,
		States:  b.states,
	}
	if flow.StartAt == "" {
		flow.StartAt = flow.First()
	}
	if !flow.Has(flow.StartAt) {
		return nil, fmt.Errorf("failed to build flow: %w: %q", domain.ErrNoStartState, flow.StartAt)
	}
	return flow, nil
}
