package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// IDKey is the reserved flat key carrying component identifier.
const IDKey = "id"

// FlatMap maps flattened key paths to scalar values.
// Params: keys like "rf.channels[0].rx_gain" and their scalars.
// Returns: one validation call input; never shared between calls.
type FlatMap map[string]Value

// Get returns value for key.
// Params: flattened key.
// Returns: value and presence flag.
func (m FlatMap) Get(key string) (Value, bool) {
	value, ok := m[key]
	return value, ok
}

// Keys returns all keys in lexical order.
func (m FlatMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy safe to mutate independently.
func (m FlatMap) Clone() FlatMap {
	out := make(FlatMap, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}

// PopID removes reserved id key from the map.
// Params: none.
// Returns: id string (empty when absent or non-string) and presence flag.
func (m FlatMap) PopID() (string, bool) {
	value, ok := m[IDKey]
	if !ok {
		return "", false
	}
	delete(m, IDKey)
	if value.Kind != KindString {
		return value.Display(), true
	}
	return value.Text, true
}

// NewFlatMap converts one decoded JSON object into FlatMap.
// Params: object decoded with json.Decoder.UseNumber.
// Returns: flat map and one message per non-scalar entry (sorted by key).
func NewFlatMap(object map[string]any) (FlatMap, []string) {
	out := make(FlatMap, len(object))
	var problems []string
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, err := ValueFromJSON(object[key])
		if err != nil {
			if errors.Is(err, ErrNotScalar) {
				problems = append(problems, fmt.Sprintf("%s must be a scalar value", key))
				continue
			}
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		out[key] = value
	}
	return out, problems
}

// DecodeFlatReader decodes one JSON object from stream into FlatMap.
// Params: decoder positioned at an object; UseNumber is enabled here.
// Returns: flat map, non-scalar messages, or decode error.
func DecodeFlatReader(decoder *json.Decoder) (FlatMap, []string, error) {
	decoder.UseNumber()
	var object map[string]any
	if err := decoder.Decode(&object); err != nil {
		return nil, nil, fmt.Errorf("decode flat object: %w", err)
	}
	if object == nil {
		return nil, nil, errors.New("decode flat object: null is not an object")
	}
	flat, problems := NewFlatMap(object)
	return flat, problems, nil
}
