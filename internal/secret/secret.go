// Package secret holds credentials that must never be printed or logged.
//
// A Secret is either a literal value stored inline with the rule, or a
// reference to a password kept in the password store. The raw text is only
// reachable through Unsafe.
package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Kind distinguishes the two secret variants.
type Kind string

const (
	KindLiteral   Kind = "literal"
	KindReference Kind = "reference"
)

// Mask replaces secret values wherever they would otherwise be shown.
const Mask = "******"

// ErrUnresolved is returned when a referenced secret cannot be looked up.
var ErrUnresolved = errors.New("unresolved secret")

// Resolver looks up stored passwords by id.
type Resolver interface {
	ResolvePassword(ctx context.Context, id string) (string, error)
}

// Secret is a literal value or a reference to a stored password.
// The zero value is an empty literal.
type Secret struct {
	kind  Kind
	value string
	id    string
}

// Literal wraps a plain value.
func Literal(value string) Secret {
	return Secret{kind: KindLiteral, value: value}
}

// Reference points at a stored password.
func Reference(id string) Secret {
	return Secret{kind: KindReference, id: id}
}

// Kind returns the variant.
func (s Secret) Kind() Kind {
	if s.kind == "" {
		return KindLiteral
	}
	return s.kind
}

// ID returns the referenced password id, or "" for literals.
func (s Secret) ID() string {
	return s.id
}

// IsEmpty reports whether the secret carries nothing usable.
func (s Secret) IsEmpty() bool {
	if s.Kind() == KindReference {
		return s.id == ""
	}
	return s.value == ""
}

// Unsafe returns the raw text. Referenced secrets are looked up through r.
// Only the command builder calls this.
func (s Secret) Unsafe(ctx context.Context, r Resolver) (string, error) {
	if s.Kind() == KindLiteral {
		return s.value, nil
	}
	if r == nil {
		return "", fmt.Errorf("%w: no password store for %q", ErrUnresolved, s.id)
	}
	value, err := r.ResolvePassword(ctx, s.id)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnresolved, s.id, err)
	}
	return value, nil
}

// String never reveals the value.
func (s Secret) String() string {
	if s.Kind() == KindReference {
		return fmt.Sprintf("stored:%s", s.id)
	}
	return Mask
}

// GoString keeps %#v from printing the struct fields.
func (s Secret) GoString() string {
	return "secret.Secret(" + s.String() + ")"
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// Map returns the canonical raw shape with the literal value masked.
func (s Secret) Map() map[string]any {
	if s.Kind() == KindReference {
		return map[string]any{"kind": string(KindReference), "id": s.id}
	}
	return map[string]any{"kind": string(KindLiteral), "value": Mask}
}

// MarshalJSON writes the masked canonical shape.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// FromMap decodes the canonical raw shape. ok is false when m is not a
// recognised secret.
func FromMap(m map[string]any) (s Secret, ok bool) {
	kind, _ := m["kind"].(string)
	switch Kind(kind) {
	case KindLiteral:
		value, isString := m["value"].(string)
		if !isString || len(m) != 2 {
			return Secret{}, false
		}
		return Literal(value), true
	case KindReference:
		id, isString := m["id"].(string)
		if !isString || len(m) != 2 {
			return Secret{}, false
		}
		return Reference(id), true
	}
	return Secret{}, false
}

// CanonicalMap returns the canonical raw shape for a literal or reference
// without masking. Used by the migrator, which must preserve values.
func CanonicalMap(kind Kind, v string) map[string]any {
	if kind == KindReference {
		return map[string]any{"kind": string(KindReference), "id": v}
	}
	return map[string]any{"kind": string(KindLiteral), "value": v}
}
