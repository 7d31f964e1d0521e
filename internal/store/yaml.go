package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validator inspects an imported document before it replaces the stored one.
// The tree holds nested map[string]any values whose leaves are strings.
type Validator func(tree map[string]any) error

// Export writes the document as nested YAML, one mapping level per path
// segment, in first-write order.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	entries, err := s.Entries(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	root, err := buildTree(entries)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return enc.Close()
}

// Import parses a nested YAML document, runs validate (when non-nil) against
// it and replaces the stored document in a single transaction.
func (s *Store) Import(ctx context.Context, r io.Reader, validate Validator) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("import: empty document")
		}
		return fmt.Errorf("import: parse: %w", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return fmt.Errorf("import: expected a single YAML document")
	}

	var entries []Entry
	tree, err := flatten(doc.Content[0], "", &entries)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	if validate != nil {
		if err := validate(tree); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}

	return s.Update(ctx, func(tx *Tx) error {
		return tx.Replace(entries)
	})
}

// buildTree folds flat entries into an ordered YAML mapping.
func buildTree(entries []Entry) (*yaml.Node, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	index := map[*yaml.Node]map[string]*yaml.Node{root: {}}

	for _, e := range entries {
		segments := strings.Split(e.Path, Separator)
		node := root
		for i, seg := range segments {
			children := index[node]
			if children == nil {
				return nil, fmt.Errorf("path %q: %q holds a value and children", e.Path, strings.Join(segments[:i], Separator))
			}
			leaf := i == len(segments)-1
			child, ok := children[seg]
			if !ok {
				key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: seg}
				if leaf {
					child = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Value}
				} else {
					child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
					index[child] = map[string]*yaml.Node{}
				}
				node.Content = append(node.Content, key, child)
				children[seg] = child
			} else if leaf {
				return nil, fmt.Errorf("path %q: value collides with a nested mapping", e.Path)
			}
			node = child
		}
	}
	return root, nil
}

// flatten walks a YAML mapping, appending one Entry per scalar leaf, and
// returns the same content as a nested map for validation.
func flatten(node *yaml.Node, prefix string, out *[]Entry) (map[string]any, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: expected a mapping", describe(prefix))
	}
	tree := make(map[string]any, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.Value == "" {
			return nil, fmt.Errorf("%s: keys must be non-empty scalars", describe(prefix))
		}
		if strings.Contains(key.Value, Separator) {
			return nil, fmt.Errorf("%s: key %q contains %q", describe(prefix), key.Value, Separator)
		}
		if _, dup := tree[key.Value]; dup {
			return nil, fmt.Errorf("%s: duplicate key %q", describe(prefix), key.Value)
		}
		path := key.Value
		if prefix != "" {
			path = prefix + Separator + key.Value
		}

		switch value.Kind {
		case yaml.ScalarNode:
			*out = append(*out, Entry{Path: path, Value: value.Value})
			tree[key.Value] = value.Value
		case yaml.MappingNode:
			sub, err := flatten(value, path, out)
			if err != nil {
				return nil, err
			}
			tree[key.Value] = sub
		default:
			return nil, fmt.Errorf("%s: unsupported YAML node", describe(path))
		}
	}
	return tree, nil
}

func describe(path string) string {
	if path == "" {
		return "document root"
	}
	return fmt.Sprintf("%q", path)
}
