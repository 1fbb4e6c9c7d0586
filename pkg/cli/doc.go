// Package cli provides common utilities for the speakerid command-line
// tool.
//
// This package includes:
//   - Configuration management (contexts stored in ~/.speakerid)
//   - Output formatting (JSON, YAML)
//   - Input file loading (YAML/JSON)
//
// Configuration supports multiple named contexts similar to kubectl,
// each describing one embedding service deployment plus the local
// profile database directory.
package cli
