// Package catalog loads the set of buildings and classrooms served by the
// stub backend.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultCatalog []byte

// Building describes a building and its business hours in local time.
type Building struct {
	Code  string  `yaml:"code"`
	Name  string  `yaml:"name"`
	Open  float64 `yaml:"open"`
	Close float64 `yaml:"close"`
}

// Classroom is a bookable room inside a building.
type Classroom struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Building string `yaml:"building"`
}

// Catalog is the full building/classroom table.
type Catalog struct {
	Buildings  []Building  `yaml:"buildings"`
	Classrooms []Classroom `yaml:"classrooms"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks hours, duplicate ids, and building references.
func (c *Catalog) Validate() error {
	if len(c.Buildings) == 0 {
		return errors.New("catalog: no buildings")
	}
	codes := make(map[string]struct{}, len(c.Buildings))
	for _, b := range c.Buildings {
		if b.Code == "" {
			return errors.New("catalog: building with empty code")
		}
		if _, dup := codes[b.Code]; dup {
			return fmt.Errorf("catalog: duplicate building %q", b.Code)
		}
		if b.Open < 0 || b.Close > 24 || b.Open >= b.Close {
			return fmt.Errorf("catalog: building %q has invalid hours %v-%v", b.Code, b.Open, b.Close)
		}
		codes[b.Code] = struct{}{}
	}

	ids := make(map[string]struct{}, len(c.Classrooms))
	for _, r := range c.Classrooms {
		if r.ID == "" {
			return errors.New("catalog: classroom with empty id")
		}
		if _, dup := ids[r.ID]; dup {
			return fmt.Errorf("catalog: duplicate classroom %q", r.ID)
		}
		if _, ok := codes[r.Building]; !ok {
			return fmt.Errorf("catalog: classroom %q references unknown building %q", r.ID, r.Building)
		}
		ids[r.ID] = struct{}{}
	}
	return nil
}

// Building looks up a building by code.
func (c *Catalog) Building(code string) (Building, bool) {
	for _, b := range c.Buildings {
		if b.Code == code {
			return b, true
		}
	}
	return Building{}, false
}

// ClassroomsIn returns the classrooms of a building ordered by name.
func (c *Catalog) ClassroomsIn(code string) []Classroom {
	var out []Classroom
	for _, r := range c.Classrooms {
		if r.Building == code {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
