package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Symbols is one or more icon names. In YAML it may be written either as
// a single scalar or as a sequence.
type Symbols []string

// UnmarshalYAML accepts `symbol: calendar` as well as `symbol: [a, b]`.
func (s *Symbols) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = Symbols{v}
		return nil
	case yaml.SequenceNode:
		list := make([]string, 0, len(node.Content))
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = Symbols(list)
		return nil
	default:
		return fmt.Errorf("config: symbol must be a string or a list of strings (line %d)", node.Line)
	}
}

// Replacement is a single title find/replace pair as written in the config.
// Whether Search is a literal or a /pattern/flags expression is decided
// when the rules are compiled.
type Replacement struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// TitleReplace is an ordered mapping of search -> replacement. Rules are
// applied in the order they appear in the YAML file.
type TitleReplace []Replacement

// UnmarshalYAML decodes a YAML mapping while keeping key order.
func (t *TitleReplace) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("config: title_replace must be a mapping (line %d)", node.Line)
	}
	out := make(TitleReplace, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var r Replacement
		if err := node.Content[i].Decode(&r.Search); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&r.Replace); err != nil {
			return err
		}
		out = append(out, r)
	}
	*t = out
	return nil
}

// MarshalYAML writes the rules back as an ordered mapping.
func (t TitleReplace) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, r := range t {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Search},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Replace},
		)
	}
	return node, nil
}
