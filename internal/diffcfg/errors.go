package diffcfg

import (
	"fmt"
	"strings"
)

// ShapeError reports a payload that cannot be read as a parameter set at all,
// such as a non-object document or a field holding the wrong kind of value.
type ShapeError struct {
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Field == "" {
		return "malformed parameters: " + e.Reason
	}
	return fmt.Sprintf("malformed parameter %q: %s", e.Field, e.Reason)
}

// ValidationError reports a field that violates one rule.
type ValidationError struct {
	Field string
	Rule  string
	Param string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case RuleRequired:
		return fmt.Sprintf("%s: field is required", e.Field)
	case RuleURL:
		return fmt.Sprintf("%s: must be an http or https URL", e.Field)
	case RuleMin:
		return fmt.Sprintf("%s: must be at least %s character(s) long", e.Field, e.Param)
	case RulePattern:
		return fmt.Sprintf("%s: invalid regular expression", e.Field)
	case RuleSecret:
		return fmt.Sprintf("%s: secret is empty", e.Field)
	case RuleUnknown:
		return fmt.Sprintf("%s: unknown field", e.Field)
	}
	return fmt.Sprintf("%s: failed %q validation", e.Field, e.Rule)
}

// ValidationErrors collects every violation found in one payload.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid parameters: " + strings.Join(msgs, "; ")
}

func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, ve := range e {
		errs[i] = ve
	}
	return errs
}

// Field returns the first violation for the named field, or nil.
func (e ValidationErrors) Field(name string) *ValidationError {
	for _, ve := range e {
		if ve.Field == name {
			return ve
		}
	}
	return nil
}

// InternalInvariantError means the command builder was handed parameters
// that never passed validation.
type InternalInvariantError struct {
	Reason string
}

func (e *InternalInvariantError) Error() string {
	return "internal invariant violated: " + e.Reason
}
