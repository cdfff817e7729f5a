package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// NotApplicable is the never-event selection used when no catalog entry applies.
const NotApplicable = "N/A"

//go:embed catalog.yaml
var embedded []byte

type Catalog struct {
	NNCClasses   []string            `yaml:"NNC_CLASSES" json:"nnc_classes"`
	DamageLevels []string            `yaml:"DAMAGE_LEVELS" json:"damage_levels"`
	Priorities   []string            `yaml:"PRIORITIES" json:"priorities"`
	EventShifts  []string            `yaml:"EVENT_SHIFTS" json:"event_shifts"`
	EventTypes   []string            `yaml:"EVENT_TYPES" json:"event_types"`
	Subtypes     map[string][]string `yaml:"SUBTYPES" json:"subtypes"`
	NeverEvents  []string            `yaml:"NEVER_EVENTS" json:"never_events"`
	WHOClasses   []string            `yaml:"WHO_CLASSES" json:"who_classes"`
}

var (
	defaultCatalog *Catalog
	loadOnce       sync.Once
)

// Default returns the vocabulary compiled into the binary.
func Default() *Catalog {
	loadOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded vocabulary is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if len(c.NeverEvents) == 0 {
		return nil, fmt.Errorf("catalog has no never events")
	}
	if len(c.WHOClasses) == 0 {
		return nil, fmt.Errorf("catalog has no WHO classes")
	}
	return &c, nil
}

func (c *Catalog) IsNeverEvent(value string) bool {
	if value == NotApplicable {
		return true
	}
	return contains(c.NeverEvents, value)
}

func (c *Catalog) IsWHOClass(value string) bool {
	return contains(c.WHOClasses, value)
}

// SubtypesFor returns nil for event types without a fixed subtype vocabulary.
func (c *Catalog) SubtypesFor(eventType string) []string {
	return c.Subtypes[eventType]
}

func (c *Catalog) IsSubtype(eventType, value string) bool {
	return contains(c.Subtypes[eventType], value)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
