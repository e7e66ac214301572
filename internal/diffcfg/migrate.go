package diffcfg

import (
	"github.com/jandubois/diffcfg/internal/secret"
)

// Legacy password tuples written by older rule editors.
const (
	legacyPassword      = "password"
	legacyStore         = "store"
	postprocessed       = "cmk_postprocessed"
	postprocessedInline = "explicit_password"
	postprocessedStored = "stored_password"
)

// Migrate rewrites a payload written by an older schema version into the
// current shape. Legacy key aliases declared in Fields are renamed, and secret
// fields given as bare strings or legacy tuples become canonical secret
// objects. Anything Migrate does not recognise is passed through for Validate
// to reject. The input is never modified and Migrate(Migrate(x)) equals
// Migrate(x).
func Migrate(raw any) any {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	for _, f := range Fields {
		for _, alias := range f.Legacy {
			v, ok := out[alias]
			if !ok {
				continue
			}
			delete(out, alias)
			if _, exists := out[f.Name]; !exists {
				out[f.Name] = v
			}
		}
		if f.Kind == KindSecret {
			if v, ok := out[f.Name]; ok {
				out[f.Name] = migrateSecret(v)
			}
		}
	}
	return out
}

func migrateSecret(v any) any {
	switch s := v.(type) {
	case string:
		return secret.CanonicalMap(secret.KindLiteral, s)
	case []any:
		if kind, value, ok := legacySecret(s); ok {
			return secret.CanonicalMap(kind, value)
		}
	case map[string]any:
		if _, ok := secret.FromMap(s); ok {
			return s
		}
	}
	return v
}

// legacySecret recognises ("password", value), ("store", id) and the
// post-processed form ("cmk_postprocessed", "explicit_password"|"stored_password", (id, value)).
func legacySecret(t []any) (secret.Kind, string, bool) {
	switch len(t) {
	case 2:
		tag, _ := t[0].(string)
		value, ok := t[1].(string)
		if !ok {
			return "", "", false
		}
		switch tag {
		case legacyPassword:
			return secret.KindLiteral, value, true
		case legacyStore:
			return secret.KindReference, value, true
		}
	case 3:
		if tag, _ := t[0].(string); tag != postprocessed {
			return "", "", false
		}
		pair, ok := t[2].([]any)
		if !ok || len(pair) != 2 {
			return "", "", false
		}
		id, idOK := pair[0].(string)
		value, valueOK := pair[1].(string)
		if !idOK || !valueOK {
			return "", "", false
		}
		switch t[1] {
		case postprocessedInline:
			return secret.KindLiteral, value, true
		case postprocessedStored:
			return secret.KindReference, id, true
		}
	}
	return "", "", false
}
