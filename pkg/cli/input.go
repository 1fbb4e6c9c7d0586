package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadInput loads a YAML or JSON file into the provided struct. A path
// of "-" reads from stdin.
func LoadInput(path string, v any) error {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		return ParseInput(data, "", v)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return ParseInput(data, path, v)
}

// ParseInput parses input data based on file extension or content
func ParseInput(data []byte, filename string, v any) error {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		// Try JSON first, then YAML
		if err := json.Unmarshal(data, v); err != nil {
			if err2 := yaml.Unmarshal(data, v); err2 != nil {
				return fmt.Errorf("failed to parse input (tried JSON and YAML)")
			}
		}
	}

	return nil
}
