package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aretw0/flowgen/internal/logging"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/naming"
)

// Compiler merges partial flow definitions into a single linear flow.
// A Compiler holds no per-call state and is safe for concurrent use.
type Compiler struct {
	logger *slog.Logger
	hooks  domain.CompileHooks
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.CompileHooks) Option {
	return func(c *Compiler) {
		c.hooks = hooks
	}
}

// New creates a compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source is one partial flow plus the provenance its states inherit.
type Source struct {
	Flow *domain.FlowDefinition
	// Tool is the contributing tool's name, if any.
	Tool string
	// ToolIndex is the contributing tool's position in its client.
	ToolIndex int
	// Functions maps an original state name to the remote function it invokes.
	Functions map[string]string
}

// Result is the merged flow and the provenance of each final state name.
type Result struct {
	Flow    *domain.FlowDefinition
	Origins map[string]domain.Origin
}

// Compile merges flows, in order, under the given overall comment.
func (c *Compiler) Compile(ctx context.Context, flows []*domain.FlowDefinition, comment string) (*Result, error) {
	sources := make([]Source, len(flows))
	for i, f := range flows {
		sources[i] = Source{Flow: f, ToolIndex: i}
	}
	return c.CompileSources(ctx, sources, comment)
}

// bounds is the entry and terminal state of one source flow.
type bounds struct {
	entry    string
	terminal string
}

// CompileSources merges the source flows, in order, into one flow.
//
// States keep their encounter order. A name already taken by an earlier
// flow is suffixed with the smallest free number starting at 2. Next
// pointers are resolved against the rename table of their own flow, the
// terminal of each flow is linked to the entry of the following one, and
// the last terminal receives End. Source flows are not mutated.
func (c *Compiler) CompileSources(ctx context.Context, sources []Source, comment string) (*Result, error) {
	start := time.Now()
	if len(sources) == 0 {
		return nil, fmt.Errorf("failed to compile: %w", domain.ErrEmptyFlow)
	}

	edges := make([]bounds, len(sources))
	for i, src := range sources {
		b, err := checkShape(src.Flow)
		if err != nil {
			return nil, &domain.CompileError{Flow: i, State: stateOf(err), Err: err}
		}
		edges[i] = b
	}

	merged := domain.NewFlowDefinition(comment)
	origins := make(map[string]domain.Origin)
	renames := make([]map[string]string, len(sources))
	nextSuffix := make(map[string]int)
	renamed := 0

	for i, src := range sources {
		renames[i] = make(map[string]string, src.Flow.Len())
		for pair := src.Flow.States.Oldest(); pair != nil; pair = pair.Next() {
			original := pair.Key
			final := uniqueName(merged, original, nextSuffix)
			renames[i][original] = final

			merged.AddState(final, pair.Value.Clone())
			origins[final] = domain.Origin{
				FlowIndex:    i,
				ToolIndex:    src.ToolIndex,
				Tool:         src.Tool,
				OriginalName: original,
				Function:     src.Functions[original],
			}

			if final != original {
				renamed++
				c.logger.Debug("renamed colliding state", "flow", i, "from", original, "to", final)
				if c.hooks.OnRename != nil {
					c.hooks.OnRename(ctx, &domain.RenameEvent{
						EventBase:    domain.EventBase{Timestamp: time.Now(), Type: domain.EventRename},
						FlowIndex:    i,
						OriginalName: original,
						FinalName:    final,
					})
				}
			}
		}
	}

	for i, src := range sources {
		table := renames[i]
		for pair := src.Flow.States.Oldest(); pair != nil; pair = pair.Next() {
			original, final := pair.Key, table[pair.Key]
			st := merged.State(final)
			if next := st.Next(); next != "" {
				st.Set(domain.FieldNext, table[next])
			}
			if final != original && st.ResultPath() == naming.ResultPath(original) {
				st.Set(domain.FieldResultPath, naming.ResultPath(final))
			}
		}

		terminal := merged.State(table[edges[i].terminal])
		if i+1 < len(sources) {
			terminal.SetNext(renames[i+1][edges[i+1].entry])
		} else {
			terminal.SetEnd()
		}
	}

	merged.StartAt = renames[0][edges[0].entry]

	c.logger.Debug("compiled flow",
		"flows", len(sources),
		"states", merged.Len(),
		"renamed", renamed,
		"start_at", merged.StartAt)
	if c.hooks.OnCompiled != nil {
		c.hooks.OnCompiled(ctx, &domain.CompiledEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCompiled},
			Flows:     len(sources),
			States:    merged.Len(),
			Renamed:   renamed,
			Duration:  time.Since(start),
		})
	}

	return &Result{Flow: merged, Origins: origins}, nil
}

// uniqueName returns name, or name suffixed with the smallest free number
// from 2 upwards when name is already taken.
func uniqueName(merged *domain.FlowDefinition, name string, nextSuffix map[string]int) string {
	if !merged.Has(name) {
		return name
	}
	n := nextSuffix[name]
	if n < 2 {
		n = 2
	}
	for {
		candidate := name + strconv.Itoa(n)
		n++
		if !merged.Has(candidate) {
			nextSuffix[name] = n
			return candidate
		}
	}
}

// stateError tags a shape error with the offending state.
type stateError struct {
	state string
	err   error
}

func (e *stateError) Error() string { return e.err.Error() }
func (e *stateError) Unwrap() error { return e.err }

func stateOf(err error) string {
	if se, ok := err.(*stateError); ok {
		return se.state
	}
	return ""
}

// checkShape finds the entry and terminal state of a source flow.
func checkShape(flow *domain.FlowDefinition) (bounds, error) {
	if flow.Len() == 0 {
		return bounds{}, domain.ErrEmptyFlow
	}

	var b bounds
	b.entry = flow.StartAt
	if b.entry == "" {
		b.entry = flow.First()
	} else if !flow.Has(b.entry) {
		return bounds{}, &stateError{state: b.entry, err: domain.ErrNoStartState}
	}

	var ended, open []string
	for pair := flow.States.Oldest(); pair != nil; pair = pair.Next() {
		st := pair.Value
		if st == nil {
			return bounds{}, &stateError{state: pair.Key, err: domain.ErrInvalidState}
		}
		next := st.Next()
		switch {
		case next != "":
			if !flow.Has(next) {
				return bounds{}, &stateError{state: pair.Key, err: fmt.Errorf("%w: %q", domain.ErrDanglingNext, next)}
			}
		case st.End():
			ended = append(ended, pair.Key)
		default:
			open = append(open, pair.Key)
		}
	}

	switch {
	case len(ended) == 1 && len(open) == 0:
		b.terminal = ended[0]
	case len(ended) == 0 && len(open) == 1:
		b.terminal = open[0]
	default:
		return bounds{}, fmt.Errorf("%w: found %d ended and %d unlinked states",
			domain.ErrNoTerminalState, len(ended), len(open))
	}
	if err := checkChain(flow, b); err != nil {
		return bounds{}, err
	}
	return b, nil
}

// checkChain follows Next from the entry and requires it to reach the
// terminal after visiting every state exactly once.
func checkChain(flow *domain.FlowDefinition, b bounds) error {
	seen := make(map[string]bool, flow.Len())
	name := b.entry
	for !seen[name] {
		seen[name] = true
		if name == b.terminal {
			break
		}
		name = flow.State(name).Next()
	}
	if name != b.terminal {
		return &stateError{state: name, err: fmt.Errorf("%w: %q loops back before %q", domain.ErrUnreachableState, name, b.terminal)}
	}
	for pair := flow.States.Oldest(); pair != nil; pair = pair.Next() {
		if !seen[pair.Key] {
			return &stateError{state: pair.Key, err: fmt.Errorf("%w: %q from %q", domain.ErrUnreachableState, pair.Key, b.entry)}
		}
	}
	return nil
}
