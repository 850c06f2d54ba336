package ports

import (
	"context"

	"github.com/aretw0/flowgen/pkg/domain"
)

// ToolLibrary resolves tools by name. It replaces loading tool code by
// module path: manifests reference tools by name and a library supplies them.
type ToolLibrary interface {
	// Tool returns a fresh copy of the named tool.
	// Returns domain.ErrToolNotFound if it does not exist.
	Tool(ctx context.Context, name string) (*domain.Tool, error)

	// Names lists the available tools, sorted.
	Names(ctx context.Context) ([]string, error)
}

// Watchable is implemented by libraries that can report changes to their tools.
type Watchable interface {
	// Watch returns a channel of changed document IDs, closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
