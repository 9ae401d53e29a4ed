// Package schema declares accepted flat keys and their scalar kinds, and checks
// flat input against them with a full diagnostic pass.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"snifferconfig/internal/domain"
	"snifferconfig/internal/keypath"
)

// Field is one declared flat key.
// Params: flattened key and the set of acceptable kinds.
// Returns: schema entry checked by Validate.
type Field struct {
	Key    string
	Accept domain.KindSet
}

// Options selects boundary policy for keys the schema does not type-check.
// Params: RequireAll rejects absent declared keys; AllowUnknown admits undeclared keys.
// Returns: schema-wide policy.
type Options struct {
	RequireAll   bool
	AllowUnknown bool
}

// Schema is an immutable ordered set of declared fields.
type Schema struct {
	fields []Field
	index  map[string]int
	opts   Options
}

// New builds schema from ordered fields.
// Params: fields in declaration order and boundary options.
// Returns: schema or error for malformed keys, duplicates, or empty kind sets.
func New(fields []Field, opts Options) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
		opts:   opts,
	}
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if _, err := keypath.Parse(key); err != nil {
			return nil, fmt.Errorf("schema field: %w", err)
		}
		if field.Accept.Empty() {
			return nil, fmt.Errorf("schema field %q accepts no types", key)
		}
		if _, exists := s.index[key]; exists {
			return nil, fmt.Errorf("schema field %q is declared twice", key)
		}
		s.index[key] = len(s.fields)
		s.fields = append(s.fields, Field{Key: key, Accept: field.Accept})
	}
	if len(s.fields) == 0 {
		return nil, errors.New("schema must declare at least one field")
	}
	return s, nil
}

// Fields returns declared fields in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Options returns boundary policy.
func (s *Schema) Options() Options {
	return s.opts
}

// Lookup returns declared field for key.
func (s *Schema) Lookup(key string) (Field, bool) {
	i, ok := s.index[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Validate checks every declared key and appends one message per violation.
// Params: flat input and caller-owned error list.
// Returns: true when no violation was found; all keys are always checked.
func (s *Schema) Validate(flat domain.FlatMap, errs *[]string) bool {
	ok := true
	report := func(message string) {
		ok = false
		*errs = append(*errs, message)
	}

	for _, field := range s.fields {
		value, present := flat.Get(field.Key)
		if !present {
			if s.opts.RequireAll {
				report(field.Key + " is required")
			}
			continue
		}
		if !field.Accept.Has(value.Kind) {
			report(fmt.Sprintf("%s must be %s, got %s %s", field.Key, field.Accept, value.Kind, value.Display()))
		}
	}

	if !s.opts.AllowUnknown {
		for _, key := range s.Unknown(flat) {
			report(key + " is not a declared field")
		}
	}
	return ok
}

// Unknown returns undeclared keys present in input, sorted.
func (s *Schema) Unknown(flat domain.FlatMap) []string {
	var out []string
	for key := range flat {
		if _, declared := s.index[key]; !declared {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Order returns input keys in reconstruction order.
// Params: flat input.
// Returns: present declared keys in declaration order, then undeclared keys sorted.
func (s *Schema) Order(flat domain.FlatMap) []string {
	out := make([]string, 0, len(flat))
	for _, field := range s.fields {
		if _, present := flat[field.Key]; present {
			out = append(out, field.Key)
		}
	}
	return append(out, s.Unknown(flat)...)
}
