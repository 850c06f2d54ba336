package tests

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
)

// ToolLibraryContractTest is a reusable test suite that verifies if an adapter complies with ports.ToolLibrary.
// expected maps each tool name the library must hold to its state count once generated or loaded.
func ToolLibraryContractTest(t *testing.T, lib ports.ToolLibrary, expected map[string]int) {
	t.Helper()
	ctx := context.Background()

	t.Run("Tool_Success", func(t *testing.T) {
		for name, states := range expected {
			tool, err := lib.Tool(ctx, name)
			if err != nil {
				t.Fatalf("unexpected error getting tool %s: %v", name, err)
			}
			if tool.Name != name {
				t.Errorf("tool name mismatch: got %q, want %q", tool.Name, name)
			}
			got := len(tool.Functions)
			if tool.FlowDefinition != nil {
				got = tool.FlowDefinition.Len()
			}
			if got != states {
				t.Errorf("tool %s contributes %d states, want %d", name, got, states)
			}
		}
	})

	t.Run("Tool_ReturnsCopies", func(t *testing.T) {
		for name := range expected {
			first, err := lib.Tool(ctx, name)
			if err != nil {
				t.Fatal(err)
			}
			first.Name = "mutated"
			first.Functions = nil
			first.FlowDefinition = nil

			second, err := lib.Tool(ctx, name)
			if err != nil {
				t.Fatal(err)
			}
			if second.Name != name {
				t.Errorf("library returned a shared tool for %s", name)
			}
		}
	})

	t.Run("Tool_NotFound", func(t *testing.T) {
		_, err := lib.Tool(ctx, "non-existent-tool")
		if !errors.Is(err, domain.ErrToolNotFound) {
			t.Errorf("expected ErrToolNotFound, got %v", err)
		}
	})

	t.Run("Names", func(t *testing.T) {
		names, err := lib.Names(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing tools: %v", err)
		}
		if !sort.StringsAreSorted(names) {
			t.Errorf("names are not sorted: %v", names)
		}
		found := make(map[string]bool, len(names))
		for _, n := range names {
			found[n] = true
		}
		for name := range expected {
			if !found[name] {
				t.Errorf("tool %s missing from Names()", name)
			}
		}
	})
}
