package entitlement

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Tables holds the two static tier tables.
type Tables struct {
	Free    Set
	Premium Set
}

type tableDoc struct {
	Limits       map[string]map[string]Limit `yaml:"limits"`
	Capabilities map[string]bool             `yaml:"capabilities"`
}

type tablesDoc struct {
	Free    *tableDoc `yaml:"free"`
	Premium *tableDoc `yaml:"premium"`
}

// DefaultTables returns the embedded tables.
func DefaultTables() (*Tables, error) {
	return ParseTables(defaultTables)
}

// LoadTables reads tables from path, or the embedded defaults when path is empty.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entitlement tables: %w", err)
	}
	return ParseTables(data)
}

// ParseTables decodes and validates a YAML tables document.
func ParseTables(data []byte) (*Tables, error) {
	var doc tablesDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse entitlement tables: %w", err)
	}
	if doc.Free == nil || doc.Premium == nil {
		return nil, fmt.Errorf("entitlement tables must declare both free and premium")
	}

	free, err := doc.Free.toSet()
	if err != nil {
		return nil, fmt.Errorf("free table: %w", err)
	}
	premium, err := doc.Premium.toSet()
	if err != nil {
		return nil, fmt.Errorf("premium table: %w", err)
	}

	if diff := keyDiff(free.Limits, premium.Limits); diff != "" {
		return nil, fmt.Errorf("limit keys differ between tiers: %s", diff)
	}
	if diff := keyDiff(free.Capabilities, premium.Capabilities); diff != "" {
		return nil, fmt.Errorf("capability flags differ between tiers: %s", diff)
	}

	return &Tables{Free: free, Premium: premium}, nil
}

func (d *tableDoc) toSet() (Set, error) {
	s := Set{
		Limits:       make(map[string]LimitEntry),
		Capabilities: make(map[string]bool, len(d.Capabilities)),
	}
	for feature, windows := range d.Limits {
		if feature == "" {
			return Set{}, fmt.Errorf("empty feature name")
		}
		for name, limit := range windows {
			window, err := ParseWindow(name)
			if err != nil {
				return Set{}, fmt.Errorf("feature %s: %w", feature, err)
			}
			e := LimitEntry{Feature: feature, Window: window, Limit: limit}
			if _, dup := s.Limits[e.Key()]; dup {
				return Set{}, fmt.Errorf("duplicate limit key %s", e.Key())
			}
			s.Limits[e.Key()] = e
		}
	}
	for flag, v := range d.Capabilities {
		if _, clash := s.Limits[flag]; clash {
			return Set{}, fmt.Errorf("capability %s collides with a limit key", flag)
		}
		s.Capabilities[flag] = v
	}
	return s, nil
}

func keyDiff[V any](a, b map[string]V) string {
	var missing []string
	for k := range a {
		if _, ok := b[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return strings.Join(missing, ", ")
}
