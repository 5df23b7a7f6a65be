// Package mcp provides an MCP (Model Context Protocol) server adapter for
// medingest. It lets AI assistants search indexed medical records and read
// the structured documents produced by ingestion.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
