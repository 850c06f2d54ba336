package modifiers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/flowgen/pkg/domain"
)

// segment is one step of a field path: a mapping key or a list index.
type segment struct {
	key     string
	index   int
	isIndex bool
}

func (s segment) String() string {
	if s.isIndex {
		return fmt.Sprintf("[%d]", s.index)
	}
	return s.key
}

// parsePath splits a field path such as `Parameters.tasks[0].endpoint.$`
// into segments. Keys containing dots are written as `["a.b"]`. A lone
// "$" segment is joined to the preceding key, so `endpoint.$` is one key.
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidPath)
	}

	var segs []segment
	i := 0
	expectKey := true
	for i < len(path) {
		switch {
		case path[i] == '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: %q: unclosed bracket", domain.ErrInvalidPath, path)
			}
			inner := path[i+1 : i+end]
			if strings.HasPrefix(inner, `"`) {
				key, err := strconv.Unquote(inner)
				if err != nil || key == "" {
					return nil, fmt.Errorf("%w: %q: bad quoted key %s", domain.ErrInvalidPath, path, inner)
				}
				segs = append(segs, segment{key: key})
			} else {
				if len(segs) == 0 {
					return nil, fmt.Errorf("%w: %q: path cannot start with an index", domain.ErrInvalidPath, path)
				}
				n, err := strconv.Atoi(inner)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%w: %q: bad index %q", domain.ErrInvalidPath, path, inner)
				}
				segs = append(segs, segment{index: n, isIndex: true})
			}
			i += end + 1
			expectKey = false
		case path[i] == '.':
			if expectKey {
				return nil, fmt.Errorf("%w: %q: empty segment", domain.ErrInvalidPath, path)
			}
			i++
			if i == len(path) {
				return nil, fmt.Errorf("%w: %q: trailing dot", domain.ErrInvalidPath, path)
			}
			expectKey = path[i] != '['
		default:
			if !expectKey {
				return nil, fmt.Errorf("%w: %q: missing dot before %q", domain.ErrInvalidPath, path, path[i:])
			}
			end := strings.IndexAny(path[i:], ".[")
			if end < 0 {
				end = len(path) - i
			}
			key := path[i : i+end]
			if key == "$" && len(segs) > 0 && !segs[len(segs)-1].isIndex {
				segs[len(segs)-1].key += ".$"
			} else {
				segs = append(segs, segment{key: key})
			}
			i += end
			expectKey = false
		}
	}
	return segs, nil
}
