package dsl

import (
	"fmt"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/naming"
)

// FunctionState builds the Action state that invokes fn on the remote
// compute service. The state reads its endpoint and function id from the
// flow input and writes its result under its own state name.
func FunctionState(fn domain.Function) *domain.State {
	name := naming.StateName(fn.Name)
	return domain.NewState().
		Set(domain.FieldComment, fn.Doc).
		Set(domain.FieldType, domain.StateTypeAction).
		Set(domain.FieldActionURL, domain.ComputeActionURL).
		Set(domain.FieldActionScope, domain.ComputeActionScope).
		Set(domain.FieldExceptionOnActionFailure, false).
		Set(domain.FieldParameters, map[string]any{
			"tasks": []any{
				map[string]any{
					"endpoint.$": domain.EndpointInputPath,
					"func.$":     naming.FunctionInputPath(fn.Name),
					"payload.$":  domain.PayloadInputPath,
				},
			},
		}).
		Set(domain.FieldResultPath, naming.ResultPath(name)).
		Set(domain.FieldWaitTime, domain.DefaultWaitTime)
}

// ToolStates maps each function to its state, keyed by state name.
// Functions deriving an empty or digit-led state name, or the same state
// name as an earlier function, are rejected.
func ToolStates(fns []domain.Function) (*domain.States, error) {
	states := domain.NewStates()
	for _, fn := range fns {
		if err := naming.Validate(fn.Name); err != nil {
			return nil, err
		}
		name := naming.StateName(fn.Name)
		if err := naming.ValidateStateName(name); err != nil {
			return nil, fmt.Errorf("function %q: %w", fn.Name, err)
		}
		if _, dup := states.Get(name); dup {
			return nil, fmt.Errorf("%w: functions derive duplicate state %q", domain.ErrInvalidName, name)
		}
		states.Set(name, FunctionState(fn))
	}
	return states, nil
}

// SplitStates wraps every state in its own single-state flow, preserving
// order. Compiling the result links the states into one chain.
func SplitStates(states *domain.States) []*domain.FlowDefinition {
	flows := make([]*domain.FlowDefinition, 0, states.Len())
	for pair := states.Oldest(); pair != nil; pair = pair.Next() {
		flow := domain.NewFlowDefinition(pair.Value.Comment())
		flow.StartAt = pair.Key
		flow.AddState(pair.Key, pair.Value)
		flows = append(flows, flow)
	}
	return flows
}

// FunctionFlows builds the states of fns and splits them into single-state flows.
func FunctionFlows(fns []domain.Function) ([]*domain.FlowDefinition, error) {
	if len(fns) == 0 {
		return nil, domain.ErrEmptyFlow
	}
	states, err := ToolStates(fns)
	if err != nil {
		return nil, err
	}
	return SplitStates(states), nil
}
