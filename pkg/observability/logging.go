package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/flowgen/pkg/domain"
)

// LoggingHooks returns compile hooks that log every event at debug level,
// with the compile summary at info.
func LoggingHooks(logger *slog.Logger) domain.CompileHooks {
	return domain.CompileHooks{
		OnRename: func(ctx context.Context, e *domain.RenameEvent) {
			logger.DebugContext(ctx, "state_renamed",
				"flow", e.FlowIndex,
				"from", e.OriginalName,
				"to", e.FinalName,
			)
		},
		OnModified: func(ctx context.Context, e *domain.ModifiedEvent) {
			logger.DebugContext(ctx, "state_modified",
				"state", e.State,
				"selector", e.Selector,
				"fields", e.Fields,
			)
		},
		OnCompiled: func(ctx context.Context, e *domain.CompiledEvent) {
			logger.InfoContext(ctx, "flow_compiled",
				"flows", e.Flows,
				"states", e.States,
				"renamed", e.Renamed,
				"duration", e.Duration,
			)
		},
	}
}
