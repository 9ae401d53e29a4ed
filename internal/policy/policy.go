// Package policy holds the fixed configuration subtrees appended to every
// reconstructed sniffer document.
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"snifferconfig/internal/tree"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultBlock []byte

// Block is an immutable ordered set of top-level subtrees.
type Block struct {
	keys    []string
	entries map[string]*tree.Node
}

// Default returns the embedded policy block.
// Params: none.
// Returns: databases/workers/uetracker/downlink_injector/exploit block.
func Default() *Block {
	block, err := Parse(defaultBlock)
	if err != nil {
		panic(fmt.Sprintf("embedded policy block: %v", err))
	}
	return block
}

// LoadFile reads a policy block from YAML file.
// Params: path to YAML mapping document.
// Returns: block or read/decode error.
func LoadFile(path string) (*Block, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file %q: %w", path, err)
	}
	block, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("decode policy file %q: %w", path, err)
	}
	return block, nil
}

// Parse decodes a policy block keeping declaration order.
// Params: YAML document whose root is a mapping.
// Returns: block or error for non-mapping roots.
func Parse(body []byte) (*Block, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, errors.New("policy document is empty")
	}
	root, err := tree.FromYAML(&doc)
	if err != nil {
		return nil, err
	}
	if root.Kind() != tree.KindObject {
		return nil, fmt.Errorf("policy root must be a mapping, got %s", root.Kind())
	}

	block := &Block{entries: make(map[string]*tree.Node, root.Len())}
	for _, key := range root.Keys() {
		child, _ := root.Field(key)
		block.keys = append(block.keys, key)
		block.entries[key] = child
	}
	return block, nil
}

// Keys returns reserved top-level keys in declaration order.
func (b *Block) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Apply attaches every subtree to the document root.
// Params: reconstructed document root (object node).
// Returns: none; existing keys are overwritten in place, new keys appended in block order.
func (b *Block) Apply(root *tree.Node) {
	for _, key := range b.keys {
		root.Put(key, b.entries[key].Clone())
	}
}
