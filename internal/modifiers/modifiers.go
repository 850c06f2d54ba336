// Package modifiers applies declarative post-merge patches to compiled flows.
package modifiers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/flowgen/internal/logging"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/schema"
)

// shorthand maps the task shortcut keys to their field in the first task.
// A string value is a path reference and lands in the ".$" variant of the
// field; any other value is written literally.
var shorthand = map[string]string{
	"endpoint": "Parameters.tasks[0].endpoint",
	"func":     "Parameters.tasks[0].func",
	"payload":  "Parameters.tasks[0].payload",
}

var protected = map[string]bool{
	domain.FieldNext: true,
	domain.FieldEnd:  true,
	"StartAt":        true,
}

// Applier patches states of a compiled flow.
type Applier struct {
	logger *slog.Logger
	hooks  domain.CompileHooks
	fields schema.Schema
}

// Option configures an Applier.
type Option func(*Applier)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Applier) {
		a.logger = logger
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.CompileHooks) Option {
	return func(a *Applier) {
		a.hooks = hooks
	}
}

// WithFieldTypes adds (or overrides) typed top-level fields.
func WithFieldTypes(fields schema.Schema) Option {
	return func(a *Applier) {
		a.fields = a.fields.Merge(fields)
	}
}

// New creates an Applier that checks the well-known state fields.
func New(opts ...Option) *Applier {
	a := &Applier{
		logger: logging.NewNop(),
		fields: schema.StateFields,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply patches flow in place. Modifiers are applied in order; each must
// match at least one state. Origins resolve tool and function selectors;
// state selectors use final names.
func (a *Applier) Apply(ctx context.Context, flow *domain.FlowDefinition, origins map[string]domain.Origin, mods []domain.Modifier) error {
	for i, mod := range mods {
		if err := mod.Selector.Check(); err != nil {
			return fmt.Errorf("modifier %d: %w", i, err)
		}
		ops, err := a.prepare(mod.Set)
		if err != nil {
			return fmt.Errorf("modifier %d (%s): %w", i, mod.Selector, err)
		}

		matched := 0
		for pair := flow.States.Oldest(); pair != nil; pair = pair.Next() {
			if !mod.Selector.Matches(pair.Key, origins[pair.Key]) {
				continue
			}
			matched++
			for _, op := range ops {
				if op.clear != nil {
					deletePath(pair.Value, op.clear)
				}
				if err := setPath(pair.Value, op.path, op.value); err != nil {
					return fmt.Errorf("modifier %d: state %q: field %q: %w", i, pair.Key, op.raw, err)
				}
			}
			if err := a.check(pair.Value, ops); err != nil {
				return fmt.Errorf("modifier %d: state %q: %w", i, pair.Key, err)
			}
			a.logger.Debug("modified state", "state", pair.Key, "selector", mod.Selector.String(), "fields", len(ops))
			if a.hooks.OnModified != nil {
				a.hooks.OnModified(ctx, &domain.ModifiedEvent{
					EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventModified},
					State:     pair.Key,
					Selector:  mod.Selector.String(),
					Fields:    opKeys(ops),
				})
			}
		}
		if matched == 0 {
			return fmt.Errorf("modifier %d: %w: %s", i, domain.ErrUnknownSelector, mod.Selector)
		}
	}
	return nil
}

type op struct {
	raw   string
	path  []segment
	value any
	// clear is removed before path is written.
	clear []segment
}

func opKeys(ops []op) []string {
	keys := make([]string, len(ops))
	for i, o := range ops {
		keys[i] = o.raw
	}
	return keys
}

// prepare parses and checks the field paths of one modifier, in key order.
func (a *Applier) prepare(set map[string]any) ([]op, error) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]op, 0, len(keys))
	for _, raw := range keys {
		path, value := raw, set[raw]
		var clear []segment
		if field, ok := shorthand[raw]; ok {
			ref, other := field+domain.PathSuffix, field
			if s, isString := value.(string); isString {
				if !strings.HasPrefix(s, domain.PathPrefix) {
					value = domain.InputPathPrefix + s
				}
			} else {
				ref, other = other, ref
			}
			path = ref
			var err error
			if clear, err = parsePath(other); err != nil {
				return nil, err
			}
		}

		segs, err := parsePath(path)
		if err != nil {
			return nil, err
		}
		if protected[segs[0].key] {
			return nil, fmt.Errorf("%w: %s", domain.ErrProtectedField, segs[0].key)
		}
		ops = append(ops, op{raw: raw, path: segs, value: value, clear: clear})
	}
	return ops, nil
}

// check type-checks the top-level fields touched by ops.
func (a *Applier) check(st *domain.State, ops []op) error {
	touched := make(map[string]any, len(ops))
	for _, o := range ops {
		touched[o.path[0].key], _ = st.Get(o.path[0].key)
	}
	return schema.ValidatePresent(a.fields, touched)
}
