package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasFile is the YAML document listing zone names that share the canonical
// zone's wall clock:
//
//	canonical: America/New_York
//	aliases: [US/Eastern, EST5EDT, America/Detroit]
type AliasFile struct {
	Canonical string   `yaml:"canonical"`
	Aliases   []string `yaml:"aliases"`
}

// LoadAliases reads and parses an alias file. Blank and duplicate names are
// dropped.
func LoadAliases(path string) (*AliasFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading timezone alias file: %w", err)
	}

	var f AliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing timezone alias file %s: %w", path, err)
	}

	f.Canonical = strings.TrimSpace(f.Canonical)
	seen := make(map[string]bool, len(f.Aliases))
	cleaned := f.Aliases[:0]
	for _, a := range f.Aliases {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		cleaned = append(cleaned, a)
	}
	f.Aliases = cleaned
	return &f, nil
}
