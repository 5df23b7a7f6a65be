// Package extractors provides the Extractor registry and the default set
// of format extractors. Each extractor converts one file format into a
// normalised domain.Document.
//
// Extractors are registered with the Registry at startup.
package extractors
