/*
Package domain contains the core models of the flow generator.

It defines the documents the compiler consumes and produces, and is kept
free of I/O and persistence.

# Key Entities

  - State: A single step of a flow, with its fields kept in declaration order.
  - FlowDefinition: The state-machine document (Comment, StartAt, States).
  - Tool: A unit that contributes states, either hand-authored or generated from Functions.
  - Client: An ordered list of tools compiled into one flow.
  - Modifier: A post-merge patch applied to the states a Selector picks.
  - Origin: Provenance of each state in a compiled flow.
*/
package domain
