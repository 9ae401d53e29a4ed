package tree

import (
	"bytes"
	"errors"
	"fmt"

	"snifferconfig/internal/domain"
	"snifferconfig/internal/keypath"

	"gopkg.in/yaml.v3"
)

// ErrConflictingPathShape marks paths that use one location both as container and leaf,
// or both as object and list.
var ErrConflictingPathShape = errors.New("conflicting path shape")

// ConflictingPathShapeError names the key and the location where shapes disagree.
type ConflictingPathShapeError struct {
	Key      string
	At       string
	Existing string
	Wanted   string
}

// Error returns formatted message.
func (e *ConflictingPathShapeError) Error() string {
	return fmt.Sprintf("key %q conflicts at %q: existing %s, wanted %s", e.Key, e.At, e.Existing, e.Wanted)
}

// Unwrap exposes ErrConflictingPathShape for errors.Is.
func (e *ConflictingPathShapeError) Unwrap() error {
	return ErrConflictingPathShape
}

// IndexRangeError reports a list index outside [0, keypath.MaxIndex].
type IndexRangeError struct {
	Key   string
	At    string
	Index int
}

// Error returns formatted message.
func (e *IndexRangeError) Error() string {
	return fmt.Sprintf("key %q: index %d at %q outside [0, %d]", e.Key, e.Index, e.At, keypath.MaxIndex)
}

// Pair is one parsed flat entry.
type Pair struct {
	Path  keypath.Path
	Value domain.Value
}

// Builder incrementally reconstructs one nested document.
// Params: none; the root is an empty object.
// Returns: builder whose result does not depend on Set call order.
type Builder struct {
	root *Node
}

// NewBuilder creates builder with empty object root.
func NewBuilder() *Builder {
	return &Builder{root: NewObject()}
}

// Root returns the document built so far.
func (b *Builder) Root() *Node {
	return b.root
}

// Set applies one (path, value) pair to the document.
// Params: parsed key path (at least one segment) and scalar value.
// Returns: *ConflictingPathShapeError when path shape disagrees with earlier pairs,
// *IndexRangeError when an index is out of range.
func (b *Builder) Set(path keypath.Path, value domain.Value) error {
	if len(path) == 0 {
		return &ConflictingPathShapeError{Key: "", At: "", Existing: "object", Wanted: "scalar"}
	}

	cursor := b.root
	for i, segment := range path {
		last := i == len(path)-1
		conflict := func(existing, wanted string) error {
			return &ConflictingPathShapeError{Key: path.String(), At: path.Prefix(i + 1), Existing: existing, Wanted: wanted}
		}

		if segment.Indexed {
			list, err := ensureList(cursor, segment.Name, func(existing string) error {
				return &ConflictingPathShapeError{Key: path.String(), At: path.Prefix(i) + dotted(i, segment.Name), Existing: existing, Wanted: "list"}
			})
			if err != nil {
				return err
			}
			if segment.Index < 0 || segment.Index > keypath.MaxIndex {
				return &IndexRangeError{Key: path.String(), At: path.Prefix(i + 1), Index: segment.Index}
			}
			list.grow(segment.Index + 1)
			element := list.items[segment.Index]

			if last {
				if !element.placeholder {
					return conflict(describe(element), "scalar")
				}
				list.items[segment.Index] = NewScalar(value)
				return nil
			}
			if element.kind != KindObject {
				return conflict(describe(element), "object")
			}
			element.placeholder = false
			cursor = element
			continue
		}

		existing, ok := cursor.fields[segment.Name]
		if last {
			if ok {
				return conflict(describe(existing), "scalar")
			}
			cursor.Put(segment.Name, NewScalar(value))
			return nil
		}
		if !ok {
			child := NewObject()
			cursor.Put(segment.Name, child)
			cursor = child
			continue
		}
		if existing.kind != KindObject {
			return conflict(describe(existing), "object")
		}
		cursor = existing
	}
	return nil
}

func ensureList(parent *Node, name string, conflict func(existing string) error) (*Node, error) {
	existing, ok := parent.fields[name]
	if !ok {
		list := NewList()
		parent.Put(name, list)
		return list, nil
	}
	if existing.kind != KindList {
		return nil, conflict(describe(existing))
	}
	return existing, nil
}

func dotted(i int, name string) string {
	if i == 0 {
		return name
	}
	return "." + name
}

func describe(node *Node) string {
	if node.kind == KindScalar {
		return "scalar " + node.value.Display()
	}
	return node.kind.String()
}

// Build reconstructs one document from all pairs.
// Params: parsed pairs in any order.
// Returns: root object or first shape conflict.
func Build(pairs []Pair) (*Node, error) {
	builder := NewBuilder()
	for _, pair := range pairs {
		if err := builder.Set(pair.Path, pair.Value); err != nil {
			return nil, err
		}
	}
	return builder.Root(), nil
}

// Render serializes the document as YAML text keeping insertion order.
// Params: document root and indent width.
// Returns: YAML text or encoder error.
func Render(root *Node, indent int) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(indent)
	if err := encoder.Encode(root.YAML()); err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("close yaml encoder: %w", err)
	}
	return buf.String(), nil
}
