// Package keypath parses flattened configuration keys such as
// "rf.channels[0].rx_gain" into ordered path segments.
package keypath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxIndex is the largest list index a key may carry.
const MaxIndex = 4096

// ErrMalformedKeyPath marks keys that do not follow the dotted/indexed grammar.
var ErrMalformedKeyPath = errors.New("malformed key path")

// MalformedKeyPathError names the offending key and the reason.
type MalformedKeyPathError struct {
	Key    string
	Reason string
}

// Error returns formatted message.
func (e *MalformedKeyPathError) Error() string {
	return fmt.Sprintf("malformed key path %q: %s", e.Key, e.Reason)
}

// Unwrap exposes ErrMalformedKeyPath for errors.Is.
func (e *MalformedKeyPathError) Unwrap() error {
	return ErrMalformedKeyPath
}

// Segment is one step of a flattened key.
// Params: field name and optional list index.
// Returns: field segment (Indexed=false) or indexed-field segment.
type Segment struct {
	Name    string
	Index   int
	Indexed bool
}

// String renders segment in flattened form.
func (s Segment) String() string {
	if !s.Indexed {
		return s.Name
	}
	return s.Name + "[" + strconv.Itoa(s.Index) + "]"
}

// Path is an ordered list of segments.
type Path []Segment

// String renders the canonical flattened key.
// Params: none.
// Returns: dotted key with bracketed indices.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, segment := range p {
		parts[i] = segment.String()
	}
	return strings.Join(parts, ".")
}

// Prefix returns the flattened key of the first n segments.
func (p Path) Prefix(n int) string {
	if n > len(p) {
		n = len(p)
	}
	return p[:n].String()
}

// Parse decomposes one flattened key into segments.
// Params: key like "a.b[2].c"; closing brackets are stripped before splitting.
// Returns: parsed path or *MalformedKeyPathError.
func Parse(key string) (Path, error) {
	if strings.TrimSpace(key) == "" {
		return nil, &MalformedKeyPathError{Key: key, Reason: "empty key"}
	}

	tokens := strings.Split(strings.ReplaceAll(key, "]", ""), ".")
	path := make(Path, 0, len(tokens))
	for _, token := range tokens {
		segment, err := parseSegment(token)
		if err != nil {
			return nil, &MalformedKeyPathError{Key: key, Reason: err.Error()}
		}
		path = append(path, segment)
	}
	return path, nil
}

// MustParse parses key and panics on malformed input.
// Params: key known to be valid (schema literals, tests).
// Returns: parsed path.
func MustParse(key string) Path {
	path, err := Parse(key)
	if err != nil {
		panic(err)
	}
	return path
}

func parseSegment(token string) (Segment, error) {
	if token == "" {
		return Segment{}, errors.New("empty segment")
	}
	name, digits, indexed := strings.Cut(token, "[")
	if name == "" {
		return Segment{}, fmt.Errorf("segment %q has no field name", token)
	}
	if !indexed {
		return Segment{Name: name}, nil
	}
	if strings.Contains(digits, "[") {
		return Segment{}, fmt.Errorf("segment %q has more than one index", token)
	}
	if digits == "" {
		return Segment{}, fmt.Errorf("segment %q has empty index", token)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Segment{}, fmt.Errorf("segment %q has non-numeric index %q", token, digits)
		}
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return Segment{}, fmt.Errorf("segment %q index out of range: %w", token, err)
	}
	if index > MaxIndex {
		return Segment{}, fmt.Errorf("segment %q index %d exceeds maximum %d", token, index, MaxIndex)
	}
	return Segment{Name: name, Index: index, Indexed: true}, nil
}
