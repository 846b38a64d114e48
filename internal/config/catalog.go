package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/faucetdb/foliogate/internal/model"
)

// ErrNotFound is returned when a slug is not in the catalog.
var ErrNotFound = errors.New("not found")

// Catalog is the set of portfolio projects keyed by slug.
type Catalog struct {
	projects map[string]model.Project
}

// NewCatalog builds a catalog from a list of projects. Later entries with a
// duplicate slug replace earlier ones.
func NewCatalog(projects []model.Project) *Catalog {
	c := &Catalog{projects: make(map[string]model.Project, len(projects))}
	for _, p := range projects {
		if p.Slug == "" {
			continue
		}
		c.projects[p.Slug] = p
	}
	return c
}

// LoadCatalog reads the `projects` list from a YAML file. The file may be a
// full configuration file or a standalone catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc struct {
		Projects []model.Project `yaml:"projects"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(doc.Projects), nil
}

// Get returns the project with the given slug or ErrNotFound.
func (c *Catalog) Get(slug string) (model.Project, error) {
	if c != nil {
		if p, ok := c.projects[slug]; ok {
			return p, nil
		}
	}
	return model.Project{}, fmt.Errorf("project %s: %w", slug, ErrNotFound)
}

// Title returns the display title for slug, falling back to the slug itself.
func (c *Catalog) Title(slug string) string {
	if p, err := c.Get(slug); err == nil && p.Title != "" {
		return p.Title
	}
	return slug
}

// IsProtected reports whether slug requires access. Projects missing from
// the catalog are treated as protected.
func (c *Catalog) IsProtected(slug string) bool {
	p, err := c.Get(slug)
	if err != nil {
		return true
	}
	return p.Protected
}

// List returns all projects sorted by slug.
func (c *Catalog) List() []model.Project {
	if c == nil {
		return nil
	}
	out := make([]model.Project, 0, len(c.projects))
	for _, p := range c.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
