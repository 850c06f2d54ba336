package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
	"github.com/aretw0/flowgen/pkg/publish"
)

// ErrNotWatchable is returned when watch mode has no library change feed.
var ErrNotWatchable = errors.New("watch mode requires a tools directory")

// settleDelay lets editors finish writing before the manifest is recompiled.
const settleDelay = 100 * time.Millisecond

// Watcher recompiles a manifest and reports how the flow changed.
type Watcher struct {
	Env          *Env
	ManifestPath string
	Out          io.Writer

	// Publisher and Name, when both set, receive every changed compilation.
	Publisher *publish.Manager
	Name      string

	last *domain.FlowDefinition
}

// Reload compiles the manifest again and returns the delta to the previous
// successful compilation. The first call reports every state as added.
// A nil diff means nothing changed.
func (w *Watcher) Reload(ctx context.Context) (*domain.FlowDiff, error) {
	data, err := os.ReadFile(w.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	res, err := w.Env.Generator.CompileDocument(ctx, data)
	if err != nil {
		return nil, err
	}

	diff := domain.Diff(w.last, res.Flow)
	w.last = res.Flow
	if diff != nil && w.Publisher != nil && w.Name != "" {
		if _, err := w.Publisher.Publish(ctx, w.Name, res.Flow); err != nil {
			return diff, fmt.Errorf("failed to save flow: %w", err)
		}
	}
	return diff, nil
}

// Flow returns the last successfully compiled flow.
func (w *Watcher) Flow() *domain.FlowDefinition {
	return w.last
}

// RunWatch compiles the manifest, then recompiles it whenever a tool
// document changes, until ctx is done.
func RunWatch(ctx context.Context, w *Watcher) error {
	lib, ok := w.Env.Library.(ports.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	events, err := lib.Watch(ctx)
	if err != nil {
		return err
	}

	logger := w.Env.Logger
	logger.Info("Starting Watcher", "manifest", w.ManifestPath)
	w.report(ctx)
	printSystemMessage(w.Out, "Waiting for changes...")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher")
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			logger.Info("Change detected, recompiling", "document", id)
			printSystemMessage(w.Out, "Change detected in '%s'.", id)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(settleDelay):
			}
			w.report(ctx)
		}
	}
}

func (w *Watcher) report(ctx context.Context) {
	first := w.last == nil
	diff, err := w.Reload(ctx)
	if err != nil {
		w.Env.Logger.Error("Compile failed", "err", err)
		printSystemMessage(w.Out, "Compile failed: %v", err)
		return
	}
	if first {
		data, err := flowgen.Marshal(w.last)
		if err == nil {
			fmt.Fprintf(w.Out, "%s\n", data)
		}
		return
	}
	if diff == nil {
		printSystemMessage(w.Out, "No changes.")
		return
	}
	data, err := json.MarshalIndent(diff, "", "  ")
	if err != nil {
		w.Env.Logger.Error("Failed to encode diff", "err", err)
		return
	}
	fmt.Fprintf(w.Out, "%s\n", data)
}
