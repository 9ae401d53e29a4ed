// Package tree holds the nested configuration document rebuilt from flat keys.
//
// A document is made of three explicit node variants: object nodes (ordered
// keyed children), list nodes (index-addressed children), and scalar leaves.
package tree

import (
	"fmt"
	"strconv"

	"snifferconfig/internal/domain"

	"gopkg.in/yaml.v3"
)

// NodeKind discriminates node variants.
type NodeKind uint8

const (
	// KindObject is a keyed mapping with insertion-ordered keys.
	KindObject NodeKind = iota
	// KindList is an index-addressed sequence.
	KindList
	// KindScalar is a leaf value.
	KindScalar
)

// String returns variant label.
func (k NodeKind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindList:
		return "list"
	case KindScalar:
		return "scalar"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Node is one document node.
// Params: kind selects which of keys/fields, items, or value is meaningful.
// Returns: tree element owned by exactly one parent.
type Node struct {
	kind   NodeKind
	keys   []string
	fields map[string]*Node
	items  []*Node
	value  domain.Value

	// placeholder marks empty objects created only to fill list gaps.
	placeholder bool
}

// NewObject creates an empty object node.
func NewObject() *Node {
	return &Node{kind: KindObject, fields: make(map[string]*Node)}
}

// NewList creates an empty list node.
func NewList() *Node {
	return &Node{kind: KindList}
}

// NewScalar creates a scalar leaf.
func NewScalar(value domain.Value) *Node {
	return &Node{kind: KindScalar, value: value}
}

func newPlaceholder() *Node {
	node := NewObject()
	node.placeholder = true
	return node
}

// Kind returns node variant.
func (n *Node) Kind() NodeKind { return n.kind }

// Keys returns object keys in insertion order.
func (n *Node) Keys() []string {
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Field returns object child by key.
func (n *Node) Field(key string) (*Node, bool) {
	if n.kind != KindObject {
		return nil, false
	}
	child, ok := n.fields[key]
	return child, ok
}

// Len returns number of object keys or list items.
func (n *Node) Len() int {
	switch n.kind {
	case KindObject:
		return len(n.keys)
	case KindList:
		return len(n.items)
	default:
		return 0
	}
}

// Item returns list element by index.
func (n *Node) Item(index int) (*Node, bool) {
	if n.kind != KindList || index < 0 || index >= len(n.items) {
		return nil, false
	}
	return n.items[index], true
}

// Value returns scalar payload.
func (n *Node) Value() domain.Value { return n.value }

// Put stores child under key, keeping the original position when key exists.
// Params: key and child node; n must be an object.
// Returns: none.
func (n *Node) Put(key string, child *Node) {
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = child
}

// Append adds child at the end of a list.
func (n *Node) Append(child *Node) {
	n.items = append(n.items, child)
}

// grow extends list with placeholders until it has size entries; lists never shrink.
func (n *Node) grow(size int) {
	for len(n.items) < size {
		n.items = append(n.items, newPlaceholder())
	}
}

// Clone returns a deep copy detached from n.
func (n *Node) Clone() *Node {
	out := &Node{kind: n.kind, value: n.value, placeholder: n.placeholder}
	switch n.kind {
	case KindObject:
		out.keys = make([]string, len(n.keys))
		copy(out.keys, n.keys)
		out.fields = make(map[string]*Node, len(n.fields))
		for key, child := range n.fields {
			out.fields[key] = child.Clone()
		}
	case KindList:
		out.items = make([]*Node, len(n.items))
		for i, item := range n.items {
			out.items[i] = item.Clone()
		}
	}
	return out
}

// Equal compares two trees structurally; object key order is ignored.
// Params: other tree.
// Returns: true when shapes and scalar literals match.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case KindObject:
		if len(n.keys) != len(other.keys) {
			return false
		}
		for key, child := range n.fields {
			peer, ok := other.fields[key]
			if !ok || !child.Equal(peer) {
				return false
			}
		}
		return true
	case KindList:
		if len(n.items) != len(other.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	default:
		return n.value == other.value
	}
}

// YAML renders the tree as an ordered yaml.v3 node.
// Params: none.
// Returns: mapping/sequence/scalar yaml node mirroring the tree.
func (n *Node) YAML() *yaml.Node {
	switch n.kind {
	case KindObject:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range n.keys {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				n.fields[key].YAML(),
			)
		}
		return out
	case KindList:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.items {
			out.Content = append(out.Content, item.YAML())
		}
		return out
	default:
		return scalarYAML(n.value)
	}
}

func scalarYAML(value domain.Value) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode}
	switch value.Kind {
	case domain.KindBool:
		node.Tag = "!!bool"
		node.Value = strconv.FormatBool(value.B)
	case domain.KindInt:
		node.Tag = "!!int"
		node.Value = value.Text
	case domain.KindFloat:
		node.Tag = "!!float"
		node.Value = value.Text
	case domain.KindString:
		node.Tag = "!!str"
		node.Value = value.Text
	default:
		node.Tag = "!!null"
		node.Value = "null"
	}
	return node
}

// FromYAML converts a decoded yaml.v3 node into a tree.
// Params: document, mapping, sequence, or scalar node; aliases are resolved.
// Returns: tree node or error for unsupported tags.
func FromYAML(node *yaml.Node) (*Node, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) != 1 {
			return nil, fmt.Errorf("yaml document must have one root, got %d", len(node.Content))
		}
		return FromYAML(node.Content[0])
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.MappingNode:
		out := NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be scalar", keyNode.Line)
			}
			child, err := FromYAML(node.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", keyNode.Value, err)
			}
			out.Put(keyNode.Value, child)
		}
		return out, nil
	case yaml.SequenceNode:
		out := NewList()
		for i, item := range node.Content {
			child, err := FromYAML(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out.Append(child)
		}
		return out, nil
	case yaml.ScalarNode:
		value, err := scalarFromYAML(node)
		if err != nil {
			return nil, err
		}
		return NewScalar(value), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", node.Line, node.Kind)
	}
}

func scalarFromYAML(node *yaml.Node) (domain.Value, error) {
	switch node.ShortTag() {
	case "!!str":
		return domain.String(node.Value), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return domain.Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return domain.Bool(b), nil
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return domain.Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return domain.Int(n), nil
	case "!!float":
		return domain.Value{Kind: domain.KindFloat, Text: node.Value}, nil
	case "!!null":
		return domain.Null(), nil
	default:
		return domain.Value{}, fmt.Errorf("line %d: unsupported scalar tag %s", node.Line, node.ShortTag())
	}
}
