/*
Package dsl provides a Go DSL for programmatically constructing flow definitions.

It covers two needs: generating the Action states of remote compute functions
(FunctionState, ToolStates), and hand-authoring tool flows with a fluent,
type-safe builder instead of YAML or JSON files.

Example usage:

	b := dsl.New("Prepare and publish")

	b.Add("Prepare").
		Action(domain.ComputeActionURL, domain.ComputeActionScope).
		ResultPath("$.Prepare").
		Next("Publish")

	b.Add("Publish").
		Pass().
		End()

	flow, err := b.Build()

States keep the order in which they were first added.
*/
package dsl
