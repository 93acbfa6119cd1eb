// Package mcp provides an MCP (Model Context Protocol) server adapter
// for docpilot. It lets AI assistants query the local document set.
package mcp

import (
	"errors"

	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driving"
)

// ErrMissingSearcher is returned when the search service is not provided.
var ErrMissingSearcher = errors.New("mcp: searcher is required")

// ErrMissingDocuments is returned when the document service is not
// provided.
var ErrMissingDocuments = errors.New("mcp: document service is required")

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Search answers document queries.
	Search driving.Searcher

	// Documents serves document lookups.
	Documents driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearcher
	}
	if p.Documents == nil {
		return ErrMissingDocuments
	}
	return nil
}
