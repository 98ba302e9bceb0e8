/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lineup

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var defaultRoster []byte

// Entity is one person in the roster, along with every charge they were booked on.
type Entity struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Image   string   `yaml:"image"`
	Charges []string `yaml:"charges"`
}

// Roster is the fixed, ordered source list rounds are drawn from.
// It is never modified after loading.
type Roster []Entity

type rosterFile struct {
	People []Entity `yaml:"people"`
}

// ExtractName separates a name from any trailing count annotation,
// e.g. "John Doe - 2 counts" becomes "John Doe".
func ExtractName(text string) string {
	for _, delim := range []string{" :", ":", " -", "- "} {
		if name, _, found := strings.Cut(text, delim); found {
			return strings.TrimSpace(name)
		}
	}

	return strings.TrimSpace(text)
}

// ParseRoster decodes and validates a YAML roster document.
func ParseRoster(data []byte) (Roster, error) {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}

	seen := make(map[string]bool, len(f.People))
	roster := make(Roster, 0, len(f.People))

	for i, e := range f.People {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidRoster, i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRoster, e.ID)
		}
		seen[e.ID] = true

		if strings.TrimSpace(e.Image) == "" {
			return nil, fmt.Errorf("%w: %q has no image", ErrInvalidRoster, e.ID)
		}
		if len(e.Charges) == 0 {
			return nil, fmt.Errorf("%w: %q has no charges", ErrInvalidRoster, e.ID)
		}
		for _, c := range e.Charges {
			if strings.TrimSpace(c) == "" {
				return nil, fmt.Errorf("%w: %q has an empty charge", ErrInvalidRoster, e.ID)
			}
		}

		e.Name = ExtractName(e.Name)
		if e.Name == "" {
			e.Name = ExtractName(e.ID)
		}

		roster = append(roster, e)
	}

	return roster, nil
}

// LoadRoster reads a roster from path, or the built-in roster if path is empty.
func LoadRoster(path string) (Roster, error) {
	if path == "" {
		return ParseRoster(defaultRoster)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseRoster(data)
}

// Lookup returns the entity with the given ID.
func (r Roster) Lookup(id string) (Entity, bool) {
	for _, e := range r {
		if e.ID == id {
			return e, true
		}
	}

	return Entity{}, false
}
