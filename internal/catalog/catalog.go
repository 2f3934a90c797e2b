// Package catalog resolves location ids to display metadata.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/quicksafe/quicksafe-server/internal/domain"
)

// GlobalNodeName is shown when a route carries no location id.
const GlobalNodeName = "Global Node"

// builtin is the location table every deployment starts with.
var builtin = []domain.Location{
	{ID: "general", Name: "Universal Access", Zone: "Sector 0"},
	{ID: "central-plaza", Name: "The Grand Plaza", Zone: "Downtown"},
	{ID: "north-transit", Name: "Northern Hub", Zone: "Sector 4"},
}

// Catalog is an immutable id -> location table.
type Catalog struct {
	byID  map[string]domain.Location
	order []string
}

// file is the on-disk YAML shape.
type file struct {
	Locations []domain.Location `yaml:"locations"`
}

// New builds a catalog from the built-in table plus extra entries.
// Extra entries replace built-ins with the same id.
func New(extra ...domain.Location) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]domain.Location)}
	for _, loc := range append(append([]domain.Location{}, builtin...), extra...) {
		if loc.ID == "" || loc.Name == "" {
			return nil, fmt.Errorf("location %q: id and name are required", loc.ID)
		}
		loc.Known = true
		if _, dup := c.byID[loc.ID]; !dup {
			c.order = append(c.order, loc.ID)
		}
		c.byID[loc.ID] = loc
	}
	return c, nil
}

// Load builds a catalog, reading extra locations from a YAML file when path is set.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New()
	}

	data, err := os.ReadFile(path) //#nosec G304 -- catalog path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	return New(f.Locations...)
}

// Resolve returns the location for id. Unknown ids get a derived name and no
// zone; an empty id resolves to the default location shown as "Global Node".
func (c *Catalog) Resolve(id string) domain.Location {
	if id == "" {
		return domain.Location{ID: domain.DefaultLocationID, Name: GlobalNodeName}
	}
	if loc, ok := c.byID[id]; ok {
		return loc
	}
	return domain.Location{ID: id, Name: DisplayName(id)}
}

// Known returns the catalog entries in definition order.
func (c *Catalog) Known() []domain.Location {
	out := make([]domain.Location, len(c.order))
	for i, id := range c.order {
		out[i] = c.byID[id]
	}
	return out
}

// DisplayName derives a name from an id: split on '-' and '_', upper-case the
// first letter of each segment, join with spaces. The rest of each segment is
// kept as typed, so "north_QA-gate" becomes "North QA Gate".
func DisplayName(id string) string {
	if id == "" {
		return ""
	}
	// Casers keep state, so each call gets its own.
	upper := cases.Upper(language.Und)
	words := splitSegments(id)
	for i, w := range words {
		if w == "" {
			continue
		}
		_, size := utf8.DecodeRuneInString(w)
		words[i] = upper.String(w[:size]) + w[size:]
	}
	return strings.Join(words, " ")
}

// splitSegments splits on both separators and keeps empty segments, so
// "a--b" yields three words like a plain string split would.
func splitSegments(id string) []string {
	var words []string
	start := 0
	for i, r := range id {
		if r == '-' || r == '_' {
			words = append(words, id[start:i])
			start = i + 1
		}
	}
	return append(words, id[start:])
}
