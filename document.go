package flowgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/flowgen/internal/compiler"
	"github.com/aretw0/flowgen/pkg/manifest"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument wraps decode failures of manifests and flow documents.
var ErrInvalidDocument = errors.New("invalid document")

// IsFlowDocument reports whether data (JSON or YAML) is a flow definition
// rather than a client manifest, judging by a top-level States key.
func IsFlowDocument(data []byte) bool {
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, ok := probe["States"]
	return ok
}

// CompileDocument accepts either a client manifest, which is compiled, or
// an already compiled flow definition, which is decoded and normalized.
// Origins are only known for manifests.
func (g *Generator) CompileDocument(ctx context.Context, data []byte) (*Result, error) {
	if IsFlowDocument(data) {
		flow, err := compiler.NewParser().Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		flow, err = RoundTrip(flow)
		if err != nil {
			return nil, err
		}
		return &Result{Flow: flow}, nil
	}

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrInvalidDocument, err)
	}
	return g.Compile(ctx, m)
}
