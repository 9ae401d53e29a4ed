package schema

import (
	"fmt"
	"os"

	"snifferconfig/internal/domain"

	"github.com/pelletier/go-toml/v2"
)

// fileSchema mirrors TOML schema document.
// Params: [options] table and ordered [[field]] array.
// Returns: raw decoded schema before normalization.
type fileSchema struct {
	Options struct {
		RequireAll   bool `toml:"require_all"`
		AllowUnknown bool `toml:"allow_unknown"`
	} `toml:"options"`
	Field []struct {
		Key   string   `toml:"key"`
		Types []string `toml:"types"`
	} `toml:"field"`
}

// LoadFile reads schema declaration from TOML file.
// Params: path to schema file.
// Returns: schema or read/decode/validation error.
func LoadFile(path string) (*Schema, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %q: %w", path, err)
	}
	s, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("decode schema file %q: %w", path, err)
	}
	return s, nil
}

// Parse decodes schema declaration from TOML bytes.
// Params: TOML document body.
// Returns: schema or decode/validation error.
func Parse(body []byte) (*Schema, error) {
	var raw fileSchema
	if err := toml.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(raw.Field))
	for i, entry := range raw.Field {
		kinds := make([]domain.Kind, 0, len(entry.Types))
		for _, label := range entry.Types {
			kind, err := domain.ParseKind(label)
			if err != nil {
				return nil, fmt.Errorf("field[%d] %q: %w", i, entry.Key, err)
			}
			kinds = append(kinds, kind)
		}
		fields = append(fields, Field{Key: entry.Key, Accept: domain.Kinds(kinds...)})
	}
	return New(fields, Options{
		RequireAll:   raw.Options.RequireAll,
		AllowUnknown: raw.Options.AllowUnknown,
	})
}
