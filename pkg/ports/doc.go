/*
Package ports defines the driven ports (interfaces) of the flow generator.

These interfaces decouple the compiler from where tools come from and where
compiled flows are kept.

# Key Interfaces

  - ToolLibrary: Resolves tools referenced by name (e.g., from the registry or a Loam directory).
  - FlowStore: Persists compiled flow definitions (memory, file or redis).
  - Watchable: Optional change feed of a ToolLibrary, used by watch mode.
  - DistributedLocker: Serializes updates to a named flow across replicas.
*/
package ports
