package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"meshtopo/internal/topology"
)

// File is the on-disk topology document.
type File struct {
	Links       []LinkEntry       `yaml:"links"`
	CEOSImage   string            `yaml:"ceos_image,omitempty"`
	ConfDir     string            `yaml:"conf_dir,omitempty"`
	CustomImage CustomImages      `yaml:"custom_image,omitempty"`
	PublishBase *PublishBase      `yaml:"publish_base,omitempty"`
	Prefix      string            `yaml:"prefix,omitempty"`
	Delay       bool              `yaml:"delay,omitempty"`
}

// LinkEntry is one declared link.
type LinkEntry struct {
	Endpoints []string `yaml:"endpoints"`
}

// CustomImage maps a device name keyword to an image.
type CustomImage struct {
	Keyword string
	Image   string
}

// CustomImages keeps custom_image entries in document order, which is the
// order keywords are matched in.
type CustomImages []CustomImage

func (c *CustomImages) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("custom_image: line %d: expected mapping", value.Line)
	}
	out := make(CustomImages, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var e CustomImage
		if err := value.Content[i].Decode(&e.Keyword); err != nil {
			return fmt.Errorf("custom_image: %w", err)
		}
		if err := value.Content[i+1].Decode(&e.Image); err != nil {
			return fmt.Errorf("custom_image %s: %w", e.Keyword, err)
		}
		out = append(out, e)
	}
	*c = out
	return nil
}

func (c CustomImages) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range c {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Keyword},
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Image},
		)
	}
	return node, nil
}

// PublishBase accepts either a single base port or an internal→external
// base port mapping.
type PublishBase struct {
	Base    int
	Mapping map[int]int
}

func (p *PublishBase) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var base int
		if err := value.Decode(&base); err != nil {
			return fmt.Errorf("publish_base: %w", err)
		}
		*p = PublishBase{Base: base}
		return nil
	case yaml.MappingNode:
		var mapping map[int]int
		if err := value.Decode(&mapping); err != nil {
			return fmt.Errorf("publish_base: %w", err)
		}
		*p = PublishBase{Mapping: mapping}
		return nil
	default:
		return fmt.Errorf("publish_base: line %d: expected integer or mapping", value.Line)
	}
}

func (p PublishBase) MarshalYAML() (any, error) {
	if len(p.Mapping) > 0 {
		return p.Mapping, nil
	}
	return p.Base, nil
}

// Policy converts the document value into a publish policy.
func (p *PublishBase) Policy() topology.PublishPolicy {
	if p == nil {
		return topology.PublishPolicy{}
	}
	if len(p.Mapping) > 0 {
		return topology.PublishPolicy{Mapping: p.Mapping}
	}
	return topology.PublishPolicy{Base: p.Base, BaseSet: true}
}

// Entries returns the endpoint token lists in declaration order.
func (f *File) Entries() [][]string {
	out := make([][]string, 0, len(f.Links))
	for _, l := range f.Links {
		out = append(out, l.Endpoints)
	}
	return out
}

// ParseFile decodes a topology document. A document without a links list
// yields ErrNoLinks.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	if f.Links == nil {
		return nil, ErrNoLinks
	}
	return &f, nil
}
