// Package assembler runs the full validate pipeline: extraction, schema gate,
// sanity gate, tree reconstruction, policy merge, and YAML serialization.
package assembler

import (
	"fmt"
	"log/slog"
	"strings"

	"snifferconfig/internal/domain"
	"snifferconfig/internal/extract"
	"snifferconfig/internal/keypath"
	"snifferconfig/internal/logging"
	"snifferconfig/internal/policy"
	"snifferconfig/internal/sanity"
	"snifferconfig/internal/schema"
	"snifferconfig/internal/tree"
)

// YAMLIndent is the indentation width of rendered documents.
const YAMLIndent = 2

// Validator turns raw text into a transmissible sniffer configuration.
// Params: immutable schema, sanity rules, policy block, type tag, and logger.
// Returns: stateless pipeline safe for concurrent Validate calls.
type Validator struct {
	schema  *schema.Schema
	rules   sanity.Set
	policy  *policy.Block
	typeTag string
	logger  *slog.Logger
}

// Option customizes Validator construction.
type Option func(*Validator)

// WithSchema replaces the default sniffer schema.
func WithSchema(s *schema.Schema) Option {
	return func(v *Validator) { v.schema = s }
}

// WithRules replaces the default sanity rules.
func WithRules(rules sanity.Set) Option {
	return func(v *Validator) { v.rules = rules }
}

// WithPolicy replaces the embedded policy block.
func WithPolicy(block *policy.Block) Option {
	return func(v *Validator) { v.policy = block }
}

// WithTypeTag replaces the result type tag.
func WithTypeTag(tag string) Option {
	return func(v *Validator) {
		if strings.TrimSpace(tag) != "" {
			v.typeTag = tag
		}
	}
}

// WithLogger sets diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates validator with defaults for every unset collaborator.
// Params: optional overrides.
// Returns: ready validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		typeTag: domain.DefaultTypeTag,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.schema == nil {
		v.schema = schema.Default()
	}
	if v.rules == nil {
		v.rules = sanity.Default()
	}
	if v.policy == nil {
		v.policy = policy.Default()
	}
	return v
}

// Validate runs every gate over raw text.
// Params: raw text expected to carry one flat JSON object.
// Returns: accepted result or the complete error list; never both.
func (v *Validator) Validate(raw string) domain.Response {
	var errs []string

	flat, ok := extract.Object(raw, &errs)
	if !ok {
		v.logger.Debug("extraction failed", "errors", len(errs))
		return domain.Reject(errs)
	}
	if !v.schema.Validate(flat, &errs) {
		v.logger.Debug("schema validation failed", "errors", len(errs))
		return domain.Reject(errs)
	}
	if !v.rules.Check(flat, &errs) {
		v.logger.Debug("sanity checks failed", "errors", len(errs))
		return domain.Reject(errs)
	}

	order := v.schema.Order(flat)
	id, _ := flat.PopID()

	root, err := v.build(flat, order)
	if err != nil {
		errs = append(errs, err.Error())
		return domain.Reject(errs)
	}
	v.policy.Apply(root)

	text, err := tree.Render(root, YAMLIndent)
	if err != nil {
		errs = append(errs, fmt.Sprintf("YAML conversion failed: %v", err))
		return domain.Reject(errs)
	}

	v.logger.Debug("configuration assembled", "id", id, "keys", len(flat))
	return domain.Accept(domain.Result{ID: id, Type: v.typeTag, ConfigStr: text})
}

func (v *Validator) build(flat domain.FlatMap, order []string) (*tree.Node, error) {
	builder := tree.NewBuilder()
	for _, key := range order {
		value, ok := flat[key]
		if !ok {
			continue
		}
		path, err := keypath.Parse(key)
		if err != nil {
			return nil, err
		}
		if err := builder.Set(path, value); err != nil {
			return nil, err
		}
	}
	return builder.Root(), nil
}
