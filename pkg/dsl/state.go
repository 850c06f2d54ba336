package dsl

import "github.com/aretw0/flowgen/pkg/domain"

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	name    string
	state   *domain.State
	builder *Builder
}

// Comment sets the free-text comment of the state.
func (s *StateBuilder) Comment(text string) *StateBuilder {
	s.state.Set(domain.FieldComment, text)
	return s
}

// Type sets the state type tag.
func (s *StateBuilder) Type(t string) *StateBuilder {
	s.state.Set(domain.FieldType, t)
	return s
}

// Pass marks the state as a no-op step.
func (s *StateBuilder) Pass() *StateBuilder {
	return s.Type("Pass")
}

// Action marks the state as a remote action served by url under scope.
func (s *StateBuilder) Action(url, scope string) *StateBuilder {
	s.state.Set(domain.FieldType, domain.StateTypeAction)
	s.state.Set(domain.FieldActionURL, url)
	s.state.Set(domain.FieldActionScope, scope)
	return s
}

// ExceptionOnActionFailure controls whether a failed action aborts the run.
func (s *StateBuilder) ExceptionOnActionFailure(v bool) *StateBuilder {
	s.state.Set(domain.FieldExceptionOnActionFailure, v)
	return s
}

// Parameters replaces the parameter block of the state.
func (s *StateBuilder) Parameters(params map[string]any) *StateBuilder {
	s.state.Set(domain.FieldParameters, domain.CopyValue(params))
	return s
}

// Param sets a single parameter entry.
func (s *StateBuilder) Param(key string, value any) *StateBuilder {
	v, _ := s.state.Get(domain.FieldParameters)
	params, ok := v.(map[string]any)
	if !ok {
		params = make(map[string]any)
	}
	params[key] = value
	s.state.Set(domain.FieldParameters, params)
	return s
}

// ResultPath sets where the state's output is written.
func (s *StateBuilder) ResultPath(path string) *StateBuilder {
	s.state.Set(domain.FieldResultPath, path)
	return s
}

// WaitTime sets the step timeout in seconds.
func (s *StateBuilder) WaitTime(seconds int) *StateBuilder {
	s.state.Set(domain.FieldWaitTime, seconds)
	return s
}

// Set assigns an arbitrary top-level field.
func (s *StateBuilder) Set(key string, value any) *StateBuilder {
	s.state.Set(key, value)
	return s
}

// Next links the state to target.
func (s *StateBuilder) Next(target string) *StateBuilder {
	s.state.SetNext(target)
	return s
}

// End marks the state as the terminal state of the flow.
func (s *StateBuilder) End() *StateBuilder {
	s.state.SetEnd()
	return s
}

// Build returns the underlying state.
// This is primarily used by the Builder, but exposed for advanced usage.
func (s *StateBuilder) Build() *domain.State {
	return s.state
}

// Add starts another state on the same flow.
func (s *StateBuilder) Add(name string) *StateBuilder {
	return s.builder.Add(name)
}

// Flow returns the flow builder this state belongs to.
func (s *StateBuilder) Flow() *Builder {
	return s.builder
}
