package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Binding is the ordered list of job names bound to a hook.
// It decodes from a single name, a comma-separated string or a sequence.
type Binding []string

func (b *Binding) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*b = nil
			return nil
		}
		*b = splitNames(node.Value)
		return nil
	case yaml.SequenceNode:
		names := make(Binding, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: job name must be a string", item.Line)
			}
			if name := strings.TrimSpace(item.Value); name != "" {
				names = append(names, name)
			}
		}
		*b = names
		return nil
	}
	return fmt.Errorf("line %d: hook binding must be a job name, a comma list or a sequence", node.Line)
}

func splitNames(s string) Binding {
	parts := strings.Split(s, ",")
	names := make(Binding, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// PathList is an ordered list of root-relative paths. A single scalar
// decodes as a one-element list.
type PathList []string

func (p *PathList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*p = nil
			return nil
		}
		*p = PathList{node.Value}
		return nil
	case yaml.SequenceNode:
		var paths []string
		if err := node.Decode(&paths); err != nil {
			return err
		}
		*p = paths
		return nil
	}
	return fmt.Errorf("line %d: path list must be a path or a sequence of paths", node.Line)
}
