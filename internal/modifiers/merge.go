package modifiers

import (
	"fmt"

	"github.com/aretw0/flowgen/pkg/domain"
)

// setPath writes value at path inside st, creating missing mappings and
// list slots. A mapping value is deep-merged into an existing mapping.
func setPath(st *domain.State, path []segment, value any) error {
	head := path[0]
	current, _ := st.Get(head.key)
	updated, err := assign(current, path[1:], value)
	if err != nil {
		return err
	}
	st.Set(head.key, updated)
	return nil
}

// assign returns container with value written at path.
func assign(container any, path []segment, value any) (any, error) {
	if len(path) == 0 {
		return merge(container, value), nil
	}

	seg := path[0]
	if seg.isIndex {
		list, ok := container.([]any)
		if container != nil && !ok {
			return nil, fmt.Errorf("%w: %s: expected list, got %T", domain.ErrInvalidPath, seg, container)
		}
		for len(list) <= seg.index {
			list = append(list, nil)
		}
		child, err := assign(list[seg.index], path[1:], value)
		if err != nil {
			return nil, err
		}
		list[seg.index] = child
		return list, nil
	}

	m, ok := container.(map[string]any)
	if container != nil && !ok {
		return nil, fmt.Errorf("%w: %s: expected mapping, got %T", domain.ErrInvalidPath, seg, container)
	}
	if m == nil {
		m = make(map[string]any)
	}
	child, err := assign(m[seg.key], path[1:], value)
	if err != nil {
		return nil, err
	}
	m[seg.key] = child
	return m, nil
}

// deletePath removes the field at path from st. Missing or mistyped
// containers along the way leave st unchanged.
func deletePath(st *domain.State, path []segment) {
	container, ok := st.Get(path[0].key)
	if !ok {
		return
	}
	if len(path) == 1 {
		st.Delete(path[0].key)
		return
	}
	for _, seg := range path[1 : len(path)-1] {
		if seg.isIndex {
			list, ok := container.([]any)
			if !ok || seg.index >= len(list) {
				return
			}
			container = list[seg.index]
			continue
		}
		m, ok := container.(map[string]any)
		if !ok {
			return
		}
		container = m[seg.key]
	}
	last := path[len(path)-1]
	if m, ok := container.(map[string]any); ok && !last.isIndex {
		delete(m, last.key)
	}
}

// merge deep-merges mapping values and replaces everything else.
func merge(existing, value any) any {
	src, isMap := value.(map[string]any)
	dst, hasMap := existing.(map[string]any)
	if !isMap || !hasMap {
		return domain.CopyValue(value)
	}
	for k, v := range src {
		dst[k] = merge(dst[k], v)
	}
	return dst
}
