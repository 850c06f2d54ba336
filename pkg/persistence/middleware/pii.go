package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type redactMiddleware struct {
	next     ports.FlowStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks, before saving, the
// values of state fields (at any depth, e.g. inside Parameters) whose key
// matches one of the patterns. Top-level structural fields are never masked.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.FlowStore) ports.FlowStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, name string, flow *domain.FlowDefinition) error {
	// The caller keeps serving the unmasked flow.
	cloned := flow.Clone()
	for _, stateName := range cloned.Names() {
		st := cloned.State(stateName)
		for _, key := range st.Keys() {
			v, _ := st.Get(key)
			if structural[key] {
				continue
			}
			if m.matches(key) {
				st.Set(key, Mask)
				continue
			}
			st.Set(key, m.mask(v))
		}
	}
	return m.next.Save(ctx, name, cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, name string) (*domain.FlowDefinition, error) {
	return m.next.Load(ctx, name)
}

func (m *redactMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// structural fields drive the flow and stay readable.
var structural = map[string]bool{
	domain.FieldType:       true,
	domain.FieldNext:       true,
	domain.FieldEnd:        true,
	domain.FieldResultPath: true,
	domain.FieldComment:    true,
}

func (m *redactMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// mask walks v, already a deep copy, and masks matching map keys in place.
func (m *redactMiddleware) mask(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			if m.matches(k) {
				val[k] = Mask
				continue
			}
			val[k] = m.mask(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = m.mask(item)
		}
		return val
	default:
		return v
	}
}
