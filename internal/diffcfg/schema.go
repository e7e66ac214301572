// Package diffcfg turns stored rule parameters for the diffcfg active check
// into the command line of the external check executable.
//
// The pipeline is Migrate, then Validate, then Build.
package diffcfg

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/jandubois/diffcfg/internal/probe"
	"github.com/jandubois/diffcfg/internal/secret"
)

// Name is the active check name.
const Name = "diffcfg"

// Version of the parameter schema.
const Version = "2.0.0"

// Validation rules reported in ValidationError.Rule.
const (
	RuleRequired = "required"
	RuleURL      = "web_url"
	RuleMin      = "min"
	RulePattern  = "pattern"
	RuleSecret   = "secret"
	RuleUnknown  = "unknown"
)

// Kind is the value type of a parameter.
type Kind string

const (
	KindString Kind = "string"
	KindURL    Kind = "url"
	KindSecret Kind = "secret"
	KindList   Kind = "list"
)

// Field declares one parameter.
type Field struct {
	Name     string
	Flag     string
	Kind     Kind
	Required bool
	Title    string
	Help     string
	Legacy   []string

	target func(p *ParameterSet) any
}

// Fields is the parameter table in command line order.
var Fields = []Field{
	{
		Name:   "host",
		Flag:   "--host",
		Kind:   KindString,
		Title:  "Host",
		Help:   "Device name passed to the check. Defaults to the monitored host's name.",
		target: func(p *ParameterSet) any { return &p.Host },
	},
	{
		Name:     "netbox",
		Flag:     "--netbox",
		Kind:     KindURL,
		Required: true,
		Title:    "Netbox-Server",
		Help:     "Base URL of the Netbox server.",
		target:   func(p *ParameterSet) any { return &p.Netbox },
	},
	{
		Name:     "netbox_token",
		Flag:     "--netbox-token",
		Kind:     KindSecret,
		Required: true,
		Title:    "Netbox API Token",
		Help:     "API token for the Netbox server.",
		Legacy:   []string{"netbox-token"},
		target:   func(p *ParameterSet) any { return &p.NetboxToken },
	},
	{
		Name:     "server",
		Flag:     "--server",
		Kind:     KindURL,
		Required: true,
		Title:    "HTTP Server",
		Help:     "Base URL of the server rendering the device configuration. Host macros such as $HOSTNAME$ are replaced.",
		target:   func(p *ParameterSet) any { return &p.Server },
	},
	{
		Name:     "server_token",
		Flag:     "--server-token",
		Kind:     KindSecret,
		Required: true,
		Title:    "HTTP Server API Token",
		Help:     "API token for the rendering server.",
		Legacy:   []string{"server-token"},
		target:   func(p *ParameterSet) any { return &p.ServerToken },
	},
	{
		Name:  "ignore",
		Flag:  "--ignore",
		Kind:  KindList,
		Title: "Ignore lines",
		Help: "You can optionally define one or multiple regular expressions." +
			" Matching lines are excluded." +
			" This allows to ignore lines which can never be found in both configs.",
		target: func(p *ParameterSet) any { return &p.Ignore },
	},
}

// ParameterSet is the validated configuration of one diffcfg check.
type ParameterSet struct {
	Host        *string        `mapstructure:"host" json:"host,omitempty" validate:"omitempty,min=1"`
	Netbox      string         `mapstructure:"netbox" json:"netbox" validate:"required,web_url"`
	NetboxToken *secret.Secret `mapstructure:"netbox_token" json:"netbox_token" validate:"required"`
	Server      string         `mapstructure:"server" json:"server" validate:"required,web_url"`
	ServerToken *secret.Secret `mapstructure:"server_token" json:"server_token" validate:"required"`
	Ignore      []string       `mapstructure:"ignore" json:"ignore,omitempty" validate:"omitempty,dive,pattern"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	// Registration only fails for reserved tag names.
	if err := v.RegisterValidation(RuleURL, validateWebURL); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation(RulePattern, validatePattern); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(validateSecrets, ParameterSet{})
	return v
}

// validateWebURL accepts absolute http and https URLs with a host part.
func validateWebURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validatePattern accepts any regular expression that compiles. Patterns
// match anywhere in a line.
func validatePattern(fl validator.FieldLevel) bool {
	_, err := regexp.Compile(fl.Field().String())
	return err == nil
}

func validateSecrets(sl validator.StructLevel) {
	p := sl.Current().Interface().(ParameterSet)
	if p.NetboxToken != nil && p.NetboxToken.IsEmpty() {
		sl.ReportError(p.NetboxToken, "netbox_token", "NetboxToken", RuleSecret, "")
	}
	if p.ServerToken != nil && p.ServerToken.IsEmpty() {
		sl.ReportError(p.ServerToken, "server_token", "ServerToken", RuleSecret, "")
	}
}

// LookupField returns the declared field with the given canonical name.
func LookupField(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// fieldIndex orders violations by the field table. List entries such as
// "ignore[2]" sort with their field.
func fieldIndex(name string) int {
	name, _, _ = strings.Cut(name, "[")
	for i, f := range Fields {
		if f.Name == name {
			return i
		}
	}
	return len(Fields)
}

// Validate turns a migrated raw payload into a ParameterSet. Payloads that
// are not objects, or hold values of the wrong type, fail with *ShapeError.
// Rule violations fail with ValidationErrors.
func Validate(raw any) (*ParameterSet, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &ShapeError{Reason: fmt.Sprintf("expected an object, got %T", raw)}
	}

	var unknown ValidationErrors
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := LookupField(k); !ok {
			unknown = append(unknown, &ValidationError{Field: k, Rule: RuleUnknown})
		}
	}

	params := &ParameterSet{}
	for _, f := range Fields {
		value, present := m[f.Name]
		if !present || value == nil {
			continue
		}
		if err := decodeField(f, value, f.target(params)); err != nil {
			return nil, err
		}
	}

	var errs ValidationErrors
	if err := validate.Struct(params); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, fmt.Errorf("validate parameters: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &ValidationError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return fieldIndex(errs[i].Field) < fieldIndex(errs[j].Field)
	})
	errs = append(errs, unknown...)
	if len(errs) > 0 {
		return nil, errs
	}
	return params, nil
}

// MigrateAndValidate runs the load-time pipeline on a stored payload.
func MigrateAndValidate(raw any) (*ParameterSet, error) {
	return Validate(Migrate(raw))
}

func decodeField(f Field, value, target any) error {
	// mapstructure turns null list entries into "", which as a pattern
	// would match every line.
	if list, ok := value.([]any); ok && f.Kind == KindList {
		for i, item := range list {
			if _, ok := item.(string); !ok {
				return &ShapeError{Field: f.Name, Reason: fmt.Sprintf("entry %d: expected a string, got %T", i, item)}
			}
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.DecodeHookFuncType(secretHook),
		Result:     target,
	})
	if err != nil {
		return fmt.Errorf("create decoder for %s: %w", f.Name, err)
	}
	if err := decoder.Decode(value); err != nil {
		return &ShapeError{Field: f.Name, Reason: shapeReason(f, value)}
	}
	return nil
}

func shapeReason(f Field, value any) string {
	switch f.Kind {
	case KindSecret:
		return fmt.Sprintf("expected a string or a secret object, got %T", value)
	case KindList:
		return fmt.Sprintf("expected a list of strings, got %T", value)
	}
	return fmt.Sprintf("expected a string, got %T", value)
}

var secretType = reflect.TypeOf(secret.Secret{})

// secretHook decodes the canonical secret object, or a bare string as a
// literal, into secret.Secret.
func secretHook(from, to reflect.Type, data any) (any, error) {
	if to != secretType {
		return data, nil
	}
	switch v := data.(type) {
	case secret.Secret:
		return v, nil
	case string:
		return secret.Literal(v), nil
	case map[string]any:
		if s, ok := secret.FromMap(v); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unrecognised secret shape %s", from)
}

// Describe returns the self-description of the check parameters.
func Describe() probe.Description {
	args := probe.Arguments{
		Required: map[string]probe.ArgumentSpec{},
		Optional: map[string]probe.ArgumentSpec{},
	}
	for _, f := range Fields {
		spec := probe.ArgumentSpec{
			Type:        string(f.Kind),
			Title:       f.Title,
			Description: f.Help,
			Flag:        f.Flag,
			Legacy:      f.Legacy,
		}
		if f.Required {
			args.Required[f.Name] = spec
		} else {
			args.Optional[f.Name] = spec
		}
	}
	return probe.Description{
		Name:        Name,
		Title:       "Check diff of committed and rendered config",
		Description: "Check if rendered config of a Switch differs from the committed config.",
		Version:     Version,
		Service:     ServiceDescription,
		Arguments:   args,
	}
}
