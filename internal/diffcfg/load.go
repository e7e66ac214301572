package diffcfg

import (
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/jandubois/diffcfg/internal/secret"
)

// ParseDocument decodes a YAML or JSON parameter document into its raw form.
func ParseDocument(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ShapeError{Reason: err.Error()}
	}
	return raw, nil
}

// LoadFile reads a YAML or JSON parameter document.
func LoadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameters: %w", err)
	}
	return ParseDocument(data)
}

// MaskedDocument returns raw with the value of every literal secret masked,
// for printing a migrated payload.
func MaskedDocument(raw any) any {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
		f, ok := fieldForKey(k)
		if !ok || f.Kind != KindSecret {
			continue
		}
		if sm, ok := v.(map[string]any); ok {
			if s, ok := secret.FromMap(sm); ok {
				out[k] = s.Map()
				continue
			}
		}
		out[k] = secret.Mask
	}
	return out
}

// fieldForKey matches canonical names and legacy aliases.
func fieldForKey(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == key {
			return f, true
		}
		for _, alias := range f.Legacy {
			if alias == key {
				return f, true
			}
		}
	}
	return Field{}, false
}

// EncodeDocument renders a raw payload as indented JSON.
func EncodeDocument(raw any) ([]byte, error) {
	return json.MarshalIndent(raw, "", "  ")
}
