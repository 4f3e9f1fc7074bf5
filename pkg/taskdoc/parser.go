package taskdoc

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parser handles parsing of task import documents
type Parser struct{}

// NewParser creates a new document parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseYAML parses YAML content into a task import document
func (p *Parser) ParseYAML(data []byte) (*Document, error) {
	var doc Document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &doc, nil
}

// ParseJSON parses JSON content into a task import document
func (p *Parser) ParseJSON(data []byte) (*Document, error) {
	var doc Document

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &doc, nil
}

// Parse attempts to parse data as either YAML or JSON
func (p *Parser) Parse(data []byte, contentType string) (*Document, error) {
	switch contentType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return p.ParseYAML(data)
	case "application/json":
		return p.ParseJSON(data)
	default:
		// Try YAML first, then JSON
		doc, err := p.ParseYAML(data)
		if err == nil {
			return doc, nil
		}

		doc, err = p.ParseJSON(data)
		if err == nil {
			return doc, nil
		}

		return nil, fmt.Errorf("failed to parse as YAML or JSON")
	}
}
