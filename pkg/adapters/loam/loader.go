package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"
)

// stateFieldOrder is the key order of known fields in a loaded state.
// Frontmatter mappings are unordered; other keys follow, sorted.
var stateFieldOrder = []string{
	domain.FieldComment,
	domain.FieldType,
	domain.FieldActionURL,
	domain.FieldActionScope,
	domain.FieldExceptionOnActionFailure,
	domain.FieldInputPath,
	domain.FieldParameters,
	domain.FieldResultPath,
	domain.FieldWaitTime,
	domain.FieldNext,
	domain.FieldEnd,
}

// Library adapts a Loam repository of tool documents to ports.ToolLibrary.
type Library struct {
	Repo *loam.TypedRepository[ToolMetadata]
}

// New creates a new Loam tool library.
func New(repo *loam.TypedRepository[ToolMetadata]) *Library {
	return &Library{
		Repo: repo,
	}
}

// Tool finds the document whose name (or file name, when unnamed) matches.
func (l *Library) Tool(ctx context.Context, name string) (*domain.Tool, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}
	for _, doc := range docs {
		if toolName(doc.ID, doc.Data) != name {
			continue
		}
		tool, err := buildTool(name, doc.Data, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("tool %s (%s): %w", name, doc.ID, err)
		}
		return tool, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
}

// Names lists the tools in the repository, sorted.
// Two documents declaring the same tool name are reported as a collision.
func (l *Library) Names(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := toolName(doc.ID, doc.Data)
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: tool '%s' is defined in both '%s' and '%s'", name, existing, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func toolName(docID string, meta ToolMetadata) string {
	if meta.Name != "" {
		return meta.Name
	}
	return trimExtension(docID)
}

func buildTool(name string, meta ToolMetadata, content string) (*domain.Tool, error) {
	tool := &domain.Tool{
		Name:    name,
		Comment: meta.Comment,
	}
	if tool.Comment == "" {
		tool.Comment = strings.TrimSpace(content)
	}

	switch {
	case len(meta.States) > 0 && len(meta.Functions) > 0:
		return nil, fmt.Errorf("functions and states are mutually exclusive")
	case len(meta.States) > 0:
		flow, err := buildFlow(tool.Comment, meta)
		if err != nil {
			return nil, err
		}
		tool.FlowDefinition = flow
	case len(meta.Functions) > 0:
		fns, err := decodeFunctions(meta.Functions)
		if err != nil {
			return nil, err
		}
		tool.Functions = fns
	default:
		return nil, domain.ErrEmptyFlow
	}
	return tool, nil
}

// decodeFunctions accepts plain names or inline {name, doc} definitions.
func decodeFunctions(raw []any) ([]domain.Function, error) {
	fns := make([]domain.Function, 0, len(raw))
	for i, item := range raw {
		switch v := item.(type) {
		case string:
			fns = append(fns, domain.Function{Name: v})
		case map[string]any, map[any]any:
			var fn domain.Function
			if err := mapstructure.Decode(v, &fn); err != nil {
				return nil, fmt.Errorf("failed to decode function %d: %w", i, err)
			}
			if fn.Name == "" {
				return nil, fmt.Errorf("function %d missing name", i)
			}
			fns = append(fns, fn)
		default:
			return nil, fmt.Errorf("invalid function definition type: %T", v)
		}
	}
	return fns, nil
}

func buildFlow(comment string, meta ToolMetadata) (*domain.FlowDefinition, error) {
	flow := domain.NewFlowDefinition(comment)
	flow.StartAt = meta.StartAt
	for i, raw := range meta.States {
		name, _ := raw["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("%w: state %d missing name", domain.ErrInvalidState, i)
		}
		if flow.Has(name) {
			return nil, fmt.Errorf("%w: duplicate state %q", domain.ErrInvalidState, name)
		}
		flow.AddState(name, orderedState(raw))
	}
	return flow, nil
}

func orderedState(raw map[string]any) *domain.State {
	st := domain.NewState()
	for _, key := range stateFieldOrder {
		if v, ok := raw[key]; ok {
			st.Set(key, normalize(v))
		}
	}

	known := make(map[string]bool, len(stateFieldOrder)+1)
	known["name"] = true
	for _, key := range stateFieldOrder {
		known[key] = true
	}
	rest := make([]string, 0, len(raw))
	for key := range raw {
		if !known[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		st.Set(key, normalize(raw[key]))
	}
	return st
}

// normalize converts YAML-style map[any]any into JSON-compatible maps.
func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch reports the IDs of tool documents that change on disk.
// The channel is closed when ctx is done.
func (l *Library) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
