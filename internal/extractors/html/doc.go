// Package html provides an Extractor for HTML documents.
// It walks the parsed DOM, skipping scripts, styles, navigation and
// hidden elements, and keeps headings, paragraphs, tables and lists
// as separate sections.
package html
