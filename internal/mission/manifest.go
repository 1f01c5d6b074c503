package mission

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest picks which built-in entry points appear on the menu, in what
// order, and with which parameters. It never introduces new code.
type Manifest struct {
	Missions []ManifestEntry `yaml:"missions"`
}

type ManifestEntry struct {
	ID      string   `yaml:"id"`
	Use     string   `yaml:"use"` // catalog id; defaults to ID
	Label   string   `yaml:"label"`
	Display *int     `yaml:"display"`
	Params  []string `yaml:"params"`
}

// LoadManifest reads a YAML manifest. A missing file returns a nil manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Missions) == 0 {
		return nil, fmt.Errorf("manifest %s lists no missions", path)
	}
	return &m, nil
}

// Build resolves the manifest against the catalog of compiled-in entries. A
// nil manifest keeps the catalog as is.
func (m *Manifest) Build(catalog []Entry) (*Registry, error) {
	if m == nil {
		return NewRegistry(catalog...)
	}

	byID := make(map[string]Entry, len(catalog))
	known := make([]string, 0, len(catalog))
	for _, e := range catalog {
		byID[e.ID] = e
		known = append(known, e.ID)
	}

	entries := make([]Entry, 0, len(m.Missions))
	for i, me := range m.Missions {
		use := me.Use
		if use == "" {
			use = me.ID
		}
		base, ok := byID[use]
		if !ok {
			msg := fmt.Sprintf("manifest entry #%d: unknown mission %q", i+1, use)
			if s := suggest(use, known); len(s) > 0 {
				msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(s, ", "))
			}
			return nil, errors.New(msg)
		}

		e := base
		if me.ID != "" {
			e.ID = me.ID
		}
		if me.Label != "" {
			e.Label = me.Label
		}
		if me.Display != nil {
			e.DisplayNumber = *me.Display
		}
		if me.Params != nil {
			e.Params = Args(me.Params)
		}
		entries = append(entries, e)
	}
	return NewRegistry(entries...)
}
