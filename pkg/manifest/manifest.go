// Package manifest decodes client manifests: the declarative list of tools
// and modifiers compiled into a single flow.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
	"github.com/aretw0/flowgen/pkg/schema"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrNoLibrary is returned when a manifest references a tool but no
// library was supplied to resolve it.
var ErrNoLibrary = errors.New("no tool library configured")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Manifest is a client: an ordered list of tools plus post-merge modifiers.
type Manifest struct {
	Name       string            `yaml:"name" validate:"required"`
	Comment    string            `yaml:"comment"`
	Tools      []ToolSpec        `yaml:"tools" validate:"required,min=1,dive"`
	Modifiers  Modifiers         `yaml:"modifiers"`
	FieldTypes map[string]string `yaml:"field_types"`
}

// Parse decodes a YAML or JSON manifest and validates it.
func Parse(data []byte) (*Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks required fields and the per-tool shape rules.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldErrors(verrs)
		}
		return err
	}
	for i, spec := range m.Tools {
		if err := spec.check(); err != nil {
			return fmt.Errorf("tool %d: %w", i, err)
		}
	}
	for i, mod := range m.Modifiers {
		if err := mod.Selector.Check(); err != nil {
			return fmt.Errorf("modifier %d: %w", i, err)
		}
	}
	if _, err := m.FieldSchema(); err != nil {
		return err
	}
	return nil
}

// FieldSchema parses field_types into a schema for the modifier layer.
// It returns nil when none are declared.
func (m *Manifest) FieldSchema() (schema.Schema, error) {
	if len(m.FieldTypes) == 0 {
		return nil, nil
	}
	s, err := schema.ParseTypeMap(m.FieldTypes)
	if err != nil {
		return nil, fmt.Errorf("field_types: %w", err)
	}
	return s, nil
}

// Resolve builds the client, fetching referenced tools from lib.
// Tools are returned in declaration order; a tool may appear repeatedly.
func (m *Manifest) Resolve(ctx context.Context, lib ports.ToolLibrary) (*domain.Client, error) {
	client := &domain.Client{
		Name:    m.Name,
		Comment: m.Comment,
		Tools:   make([]*domain.Tool, 0, len(m.Tools)),
	}
	for i, spec := range m.Tools {
		tool, err := spec.resolve(ctx, lib)
		if err != nil {
			return nil, fmt.Errorf("tool %d: %w", i, err)
		}
		client.Tools = append(client.Tools, tool)
	}
	return client, nil
}

// fieldErrors flattens validator errors into the schema aggregate form.
func fieldErrors(verrs validator.ValidationErrors) error {
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, &schema.ValidationError{
			Key:    fe.Namespace(),
			Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
		})
	}
	return &schema.AggregateError{Errors: errs}
}
