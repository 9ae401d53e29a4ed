package sanity

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	kindPositive = "positive"
	kindLua      = "lua"
)

type fileRules struct {
	Rule []struct {
		Name    string `toml:"name"`
		Key     string `toml:"key"`
		Kind    string `toml:"kind"`
		Expr    string `toml:"expr"`
		Message string `toml:"message"`
	} `toml:"rule"`
}

// LoadFile reads rule set from TOML file.
// Params: path to rules file with [[rule]] entries.
// Returns: ordered rule set or read/decode/compile error.
func LoadFile(path string) (Set, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sanity file %q: %w", path, err)
	}
	set, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("decode sanity file %q: %w", path, err)
	}
	return set, nil
}

// Parse decodes rule set from TOML bytes.
// Params: TOML document body.
// Returns: ordered rule set or error naming the failing entry.
func Parse(body []byte) (Set, error) {
	var raw fileRules
	if err := toml.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	set := make(Set, 0, len(raw.Rule))
	for i, entry := range raw.Rule {
		key := strings.TrimSpace(entry.Key)
		if key == "" {
			return nil, fmt.Errorf("rule[%d]: key is required", i)
		}
		switch strings.ToLower(strings.TrimSpace(entry.Kind)) {
		case kindPositive, "":
			set = append(set, Positive{Key: key, Message: entry.Message})
		case kindLua:
			if strings.TrimSpace(entry.Expr) == "" {
				return nil, fmt.Errorf("rule[%d] %q: expr is required for kind=lua", i, key)
			}
			rule, err := NewExpr(entry.Name, key, entry.Expr, entry.Message)
			if err != nil {
				return nil, fmt.Errorf("rule[%d]: %w", i, err)
			}
			set = append(set, rule)
		default:
			return nil, fmt.Errorf("rule[%d] %q: unsupported kind %q", i, key, entry.Kind)
		}
	}
	if len(set) == 0 {
		return nil, errors.New("rules file declares no [[rule]] entries")
	}
	return set, nil
}
