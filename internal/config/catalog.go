package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/mla/mla/chart-go/internal/chart"
)

// Catalog is the domain type configuration: how each entity and link type
// is drawn and which properties it carries.
//
//	[entities.person]
//	icon = "person.png"
//	color = "#1e90ff"
//	show = true
//
//	[[properties.person]]
//	type_id = "email"
//	label = "E-mail"
type Catalog struct {
	Entities   map[string]chart.TypeView         `toml:"entities" json:"entities"`
	Links      map[string]chart.TypeView         `toml:"links" json:"links"`
	Properties map[string][]chart.PropertyConfig `toml:"properties" json:"properties"`
}

// EmptyCatalog returns a catalog without types, so every type falls back
// to the renderer defaults.
func EmptyCatalog() *Catalog {
	return &Catalog{
		Entities:   map[string]chart.TypeView{},
		Links:      map[string]chart.TypeView{},
		Properties: map[string][]chart.PropertyConfig{},
	}
}

// LoadCatalog decodes a TOML type configuration file.
func LoadCatalog(path string) (*Catalog, error) {
	c := EmptyCatalog()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes a TOML type configuration from memory.
func ParseCatalog(data string) (*Catalog, error) {
	c := EmptyCatalog()
	if _, err := toml.Decode(data, c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for typeID, props := range c.Properties {
		for i, p := range props {
			if err := chart.Validate(p); err != nil {
				return fmt.Errorf("properties.%s[%d]: %w", typeID, i, err)
			}
		}
	}
	return nil
}

func (c *Catalog) EntityView(typeID string) (chart.TypeView, bool) {
	v, ok := c.Entities[typeID]
	return v, ok
}

func (c *Catalog) LinkView(typeID string) (chart.TypeView, bool) {
	v, ok := c.Links[typeID]
	return v, ok
}

// PropertyConfig returns the property definitions of a type.
func (c *Catalog) PropertyConfig(typeID string) []chart.PropertyConfig {
	return c.Properties[typeID]
}
