package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/flowgen/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Parser is responsible for converting raw bytes into a FlowDefinition.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a flow document. Content starting with '{' is read as
// JSON, anything else as YAML. State order is preserved either way.
func (p *Parser) Parse(data []byte) (*domain.FlowDefinition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("failed to parse flow: %w", domain.ErrEmptyFlow)
	}

	var flow domain.FlowDefinition
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &flow); err != nil {
			return nil, fmt.Errorf("failed to parse flow: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &flow); err != nil {
		return nil, fmt.Errorf("failed to parse flow: %w", err)
	}

	if flow.Len() == 0 {
		return nil, fmt.Errorf("failed to parse flow: %w", domain.ErrEmptyFlow)
	}
	return &flow, nil
}
