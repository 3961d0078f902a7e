package scenario

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// Flatten returns the decoded configuration keyed by section-qualified name.
func Flatten(cfg *Config) (map[string]any, error) {
	nested := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "koanf",
		Result:  &nested,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("flatten config: %w", err)
	}

	out := make(map[string]any)
	for section, v := range nested {
		keys, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for key, val := range keys {
			out[section+"."+key] = val
		}
	}
	return out, nil
}

// SortedKeys returns the keys of a flattened configuration in schema order.
// Keys not in the schema sort last, alphabetically.
func SortedKeys(flat map[string]any) []string {
	order := make(map[string]int, len(Schema))
	for i, f := range Schema {
		order[f.Name()] = i
	}
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iok := order[keys[i]]
		oj, jok := order[keys[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
