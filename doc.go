/*
Package flowgen generates flow definitions for a workflow orchestration
service: JSON state machines describing a linear pipeline of remote-execution
steps.

A tool contributes states, either generated from a list of remote functions
or taken from a hand-authored partial flow. A client is an ordered list of
tools. Combining a client compiles every tool flow into one definition:
states keep their order, colliding names are suffixed (X, X2, X3), Next
pointers are rewired and the flows are chained, the last state receiving End.
Modifiers then patch fields of selected states.

# Usage

	tool := &domain.Tool{
		Name:      "MockTool",
		Comment:   "Mock Tool",
		Functions: []domain.Function{{Name: "mock_func", Doc: "Mock function"}},
	}
	client := &domain.Client{Name: "MyClient", Comment: "Example", Tools: []*domain.Tool{tool, tool}}

	flow, err := flowgen.CombineToolFlows(ctx, client, []domain.Modifier{
		domain.ModifyFunction("mock_func", map[string]any{"endpoint": "funcx_endpoint_non_compute"}),
	})
	if err != nil {
		log.Fatal(err)
	}
	out, _ := flowgen.Marshal(flow)
	fmt.Println(string(out))

Clients can also be declared in YAML manifests (see package manifest) and
compiled with Generator.Compile, resolving tool references through a
ports.ToolLibrary such as registry.Registry or a directory opened with
OpenLibrary.
*/
package flowgen
