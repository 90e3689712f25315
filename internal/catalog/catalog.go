// Package catalog loads the plant catalog from YAML.
//
// The binary embeds a default catalog; `server catalog import <file>` and
// the catalog.path setting load a replacement. Loading is strict: unknown
// keys, missing names and duplicate ids are errors. A spacing the layout
// does not model (anything but 1, 4 or 9) is accepted but reported as a
// Warning, since such a plant silently falls back to a 1x1 footprint.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/garden-planner/internal/layout"
	"github.com/sakif/garden-planner/internal/model"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// ErrEmpty is returned for a catalog file without plants.
var ErrEmpty = errors.New("catalog: no plants")

type file struct {
	Plants []model.CatalogPlant `yaml:"plants"`
}

// Warning flags a catalog row that loads but will not lay out as its
// spacing suggests.
type Warning struct {
	PlantID    int64
	CommonName string
	Spacing    int
	// Side is the footprint side length the layout will actually use.
	Side int
}

func (w Warning) String() string {
	return fmt.Sprintf("plant %d (%s): spacing %d is not one of 1, 4, 9; using a %dx%d footprint",
		w.PlantID, w.CommonName, w.Spacing, w.Side, w.Side)
}

// Default returns the embedded catalog.
func Default() ([]model.CatalogPlant, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadOrDefault reads path, or the embedded catalog when path is empty.
func LoadOrDefault(path string) ([]model.CatalogPlant, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// LoadFile reads a catalog from path.
func LoadFile(path string) ([]model.CatalogPlant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %w", path, err)
	}
	defer f.Close()

	plants, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plants, nil
}

// Load parses and validates a catalog document.
func Load(r io.Reader) ([]model.CatalogPlant, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("catalog: parsing YAML: %w", err)
	}
	if len(doc.Plants) == 0 {
		return nil, ErrEmpty
	}

	seen := make(map[int64]bool, len(doc.Plants))
	for i := range doc.Plants {
		p := &doc.Plants[i]
		p.CommonName = strings.TrimSpace(p.CommonName)
		switch {
		case p.ID <= 0:
			return nil, fmt.Errorf("catalog: plants[%d]: id must be positive", i)
		case seen[p.ID]:
			return nil, fmt.Errorf("catalog: plants[%d]: duplicate id %d", i, p.ID)
		case p.CommonName == "":
			return nil, fmt.Errorf("catalog: plants[%d]: common_name is required", i)
		}
		seen[p.ID] = true
	}
	return doc.Plants, nil
}

// Check returns a Warning for every plant whose spacing has no exact footprint.
func Check(plants []model.CatalogPlant) []Warning {
	var warnings []Warning
	for _, p := range plants {
		if !layout.IsStandardSpacing(p.Spacing) {
			warnings = append(warnings, Warning{
				PlantID:    p.ID,
				CommonName: p.CommonName,
				Spacing:    p.Spacing,
				Side:       layout.SideLength(p.Spacing),
			})
		}
	}
	return warnings
}
