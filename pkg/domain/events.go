package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRename   EventType = "rename"
	EventModified EventType = "modified"
	EventCompiled EventType = "compiled"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// RenameEvent is emitted when a colliding state name receives a suffix.
type RenameEvent struct {
	EventBase
	FlowIndex    int    `json:"flow_index"`
	OriginalName string `json:"original_name"`
	FinalName    string `json:"final_name"`
}

// ModifiedEvent is emitted for every state a modifier patches.
type ModifiedEvent struct {
	EventBase
	State    string   `json:"state"`
	Selector string   `json:"selector"`
	Fields   []string `json:"fields"`
}

// CompiledEvent is emitted once per successful compilation.
type CompiledEvent struct {
	EventBase
	Flows    int           `json:"flows"`
	States   int           `json:"states"`
	Renamed  int           `json:"renamed"`
	Duration time.Duration `json:"duration"`
}

// CompileHooks defines callbacks for compiler observability.
// Any hook may be nil.
type CompileHooks struct {
	OnRename   func(context.Context, *RenameEvent)
	OnModified func(context.Context, *ModifiedEvent)
	OnCompiled func(context.Context, *CompiledEvent)
}

// Merge returns hooks that call h first and then other.
func (h CompileHooks) Merge(other CompileHooks) CompileHooks {
	return CompileHooks{
		OnRename: func(ctx context.Context, e *RenameEvent) {
			if h.OnRename != nil {
				h.OnRename(ctx, e)
			}
			if other.OnRename != nil {
				other.OnRename(ctx, e)
			}
		},
		OnModified: func(ctx context.Context, e *ModifiedEvent) {
			if h.OnModified != nil {
				h.OnModified(ctx, e)
			}
			if other.OnModified != nil {
				other.OnModified(ctx, e)
			}
		},
		OnCompiled: func(ctx context.Context, e *CompiledEvent) {
			if h.OnCompiled != nil {
				h.OnCompiled(ctx, e)
			}
			if other.OnCompiled != nil {
				other.OnCompiled(ctx, e)
			}
		},
	}
}
