// Package sanity holds named business rules checked after schema validation.
package sanity

import (
	"fmt"

	"snifferconfig/internal/domain"
)

// Rule is one named check over the flat input.
// Params: flat input that already passed schema checks.
// Returns: violation message and false when the rule fails.
type Rule interface {
	Name() string
	Check(flat domain.FlatMap) (string, bool)
}

// Set is an ordered list of rules; every rule runs on every call.
type Set []Rule

// Check runs all rules and appends one message per violated rule.
// Params: flat input and caller-owned error list.
// Returns: true when all rules pass.
func (s Set) Check(flat domain.FlatMap, errs *[]string) bool {
	ok := true
	for _, rule := range s {
		if message, passed := rule.Check(flat); !passed {
			ok = false
			*errs = append(*errs, message)
		}
	}
	return ok
}

// Default returns the sniffer rule set.
func Default() Set {
	return Set{Positive{Key: "rf.sample_rate"}}
}

// Positive requires a numeric field to be strictly greater than zero.
// An absent key counts as zero.
type Positive struct {
	Key     string
	Message string
}

// Name returns rule name.
func (p Positive) Name() string {
	return p.Key + ":positive"
}

// Check evaluates value > 0.
// Params: flat input.
// Returns: configured or default message on violation.
func (p Positive) Check(flat domain.FlatMap) (string, bool) {
	number := 0.0
	if value, ok := flat.Get(p.Key); ok {
		n, numeric := value.Number()
		if !numeric {
			return p.message(), false
		}
		number = n
	}
	if number <= 0 {
		return p.message(), false
	}
	return "", true
}

func (p Positive) message() string {
	if p.Message != "" {
		return p.Message
	}
	return fmt.Sprintf("%s must be > 0", p.Key)
}
