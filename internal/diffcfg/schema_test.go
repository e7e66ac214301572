package diffcfg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jandubois/diffcfg/internal/secret"
)

func validRaw() map[string]any {
	return map[string]any{
		"netbox":       "https://netbox.example.com",
		"netbox_token": map[string]any{"kind": "literal", "value": "abc123"},
		"server":       "http://$HOSTNAME$/config",
		"server_token": map[string]any{"kind": "reference", "id": "render-token"},
	}
}

func requireValidationErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()
	require.Error(t, err)
	var errs ValidationErrors
	require.True(t, errors.As(err, &errs), "expected ValidationErrors, got %T: %v", err, err)
	return errs
}

func TestValidateCanonical(t *testing.T) {
	raw := validRaw()
	raw["host"] = "sw1"
	raw["ignore"] = []any{"^#", "unused$"}

	params, err := Validate(raw)
	require.NoError(t, err)

	require.NotNil(t, params.Host)
	assert.Equal(t, "sw1", *params.Host)
	assert.Equal(t, "https://netbox.example.com", params.Netbox)
	assert.Equal(t, "http://$HOSTNAME$/config", params.Server)
	assert.Equal(t, secret.KindLiteral, params.NetboxToken.Kind())
	assert.Equal(t, secret.KindReference, params.ServerToken.Kind())
	assert.Equal(t, "render-token", params.ServerToken.ID())
	assert.Equal(t, []string{"^#", "unused$"}, params.Ignore)
}

func TestValidateOptionalFieldsAbsent(t *testing.T) {
	params, err := Validate(validRaw())
	require.NoError(t, err)
	assert.Nil(t, params.Host)
	assert.Empty(t, params.Ignore)
}

func TestValidateBareStringSecret(t *testing.T) {
	raw := validRaw()
	raw["netbox_token"] = "abc123"

	params, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, *params.NetboxToken, secret.Literal("abc123"))
}

func TestValidateMissingRequired(t *testing.T) {
	for _, name := range []string{"netbox", "netbox_token", "server", "server_token"} {
		t.Run(name, func(t *testing.T) {
			raw := validRaw()
			delete(raw, name)

			_, err := Validate(raw)
			errs := requireValidationErrors(t, err)
			require.Len(t, errs, 1)
			assert.Equal(t, name, errs[0].Field)
			assert.Equal(t, RuleRequired, errs[0].Rule)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, name, ve.Field)
		})
	}
}

func TestValidateNullIsAbsent(t *testing.T) {
	raw := validRaw()
	raw["server"] = nil

	_, err := Validate(raw)
	errs := requireValidationErrors(t, err)
	require.NotNil(t, errs.Field("server"))
	assert.Equal(t, RuleRequired, errs.Field("server").Rule)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"https://x", true},
		{"http://netbox.local:8000/api", true},
		{"HTTPS://X", true},
		{"http://$HOSTNAME$/config", true},
		{"ftp://x", false},
		{"netbox.example.com", false},
		{"https://", false},
		{"/relative/path", false},
		{"://missing-scheme", false},
	}

	for _, field := range []string{"netbox", "server"} {
		for _, tt := range tests {
			t.Run(field+" "+tt.value, func(t *testing.T) {
				raw := validRaw()
				raw[field] = tt.value

				_, err := Validate(raw)
				if tt.valid {
					assert.NoError(t, err)
					return
				}
				errs := requireValidationErrors(t, err)
				require.NotNil(t, errs.Field(field))
				assert.Equal(t, RuleURL, errs.Field(field).Rule)
			})
		}
	}
}

func TestValidateEmptyHost(t *testing.T) {
	raw := validRaw()
	raw["host"] = ""

	_, err := Validate(raw)
	errs := requireValidationErrors(t, err)
	require.NotNil(t, errs.Field("host"))
	assert.Equal(t, RuleMin, errs.Field("host").Rule)
	assert.Equal(t, "1", errs.Field("host").Param)
}

func TestValidateIgnorePatterns(t *testing.T) {
	raw := validRaw()
	raw["ignore"] = []any{"^#", "([", "ok"}

	_, err := Validate(raw)
	errs := requireValidationErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "ignore[1]", errs[0].Field)
	assert.Equal(t, RulePattern, errs[0].Rule)
}

func TestValidateEmptyIgnoreList(t *testing.T) {
	raw := validRaw()
	raw["ignore"] = []any{}

	params, err := Validate(raw)
	require.NoError(t, err)
	assert.Empty(t, params.Ignore)
}

func TestValidateEmptySecrets(t *testing.T) {
	raw := validRaw()
	raw["netbox_token"] = ""
	raw["server_token"] = map[string]any{"kind": "reference", "id": ""}

	_, err := Validate(raw)
	errs := requireValidationErrors(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "netbox_token", errs[0].Field)
	assert.Equal(t, RuleSecret, errs[0].Rule)
	assert.Equal(t, "server_token", errs[1].Field)
	assert.Equal(t, RuleSecret, errs[1].Rule)
}

func TestValidateCollectsInFieldOrder(t *testing.T) {
	raw := map[string]any{
		"host":         "",
		"netbox":       "ftp://x",
		"server_token": "",
		"zzz":          true,
	}

	_, err := Validate(raw)
	errs := requireValidationErrors(t, err)

	var got [][2]string
	for _, ve := range errs {
		got = append(got, [2]string{ve.Field, ve.Rule})
	}
	assert.Equal(t, [][2]string{
		{"host", RuleMin},
		{"netbox", RuleURL},
		{"netbox_token", RuleRequired},
		{"server", RuleRequired},
		{"server_token", RuleSecret},
		{"zzz", RuleUnknown},
	}, got)
}

func TestValidateUnknownAndLegacyKeys(t *testing.T) {
	raw := validRaw()
	raw["extra"] = "x"

	_, err := Validate(raw)
	errs := requireValidationErrors(t, err)
	require.NotNil(t, errs.Field("extra"))
	assert.Equal(t, RuleUnknown, errs.Field("extra").Rule)

	legacy := validRaw()
	legacy["netbox-token"] = legacy["netbox_token"]
	delete(legacy, "netbox_token")

	_, err = Validate(legacy)
	errs = requireValidationErrors(t, err)
	assert.Equal(t, RuleRequired, errs.Field("netbox_token").Rule)
	assert.Equal(t, RuleUnknown, errs.Field("netbox-token").Rule)
}

func TestValidateShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   any
		field string
	}{
		{"not an object", []any{"netbox"}, ""},
		{"nil document", nil, ""},
		{"netbox is a number", map[string]any{"netbox": 5}, "netbox"},
		{"host is a list", map[string]any{"host": []any{"a"}}, "host"},
		{"ignore is a string", map[string]any{"ignore": "^#"}, "ignore"},
		{"ignore holds numbers", map[string]any{"ignore": []any{1, 2}}, "ignore"},
		{"ignore holds null", map[string]any{"ignore": []any{"^#", nil}}, "ignore"},
		{"secret unknown kind", map[string]any{"netbox_token": map[string]any{"kind": "vault", "id": "x"}}, "netbox_token"},
		{"secret is a number", map[string]any{"server_token": 42}, "server_token"},
		{"legacy tuple not migrated", map[string]any{"server_token": []any{"password", "x"}}, "server_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.raw)
			var se *ShapeError
			require.True(t, errors.As(err, &se), "expected ShapeError, got %T: %v", err, err)
			assert.Equal(t, tt.field, se.Field)
		})
	}
}

func TestValidationErrorDoesNotLeakSecrets(t *testing.T) {
	raw := validRaw()
	raw["netbox"] = "ftp://x"
	raw["server_token"] = "topsecret"

	_, err := Validate(raw)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "topsecret")
	assert.NotContains(t, err.Error(), "abc123")
}

func TestDescribe(t *testing.T) {
	desc := Describe()
	assert.Equal(t, Name, desc.Name)
	assert.Equal(t, ServiceDescription, desc.Service)

	for _, name := range []string{"netbox", "netbox_token", "server", "server_token"} {
		_, ok := desc.Arguments.Required[name]
		assert.True(t, ok, "expected %q in required arguments", name)
	}
	for _, name := range []string{"host", "ignore"} {
		_, ok := desc.Arguments.Optional[name]
		assert.True(t, ok, "expected %q in optional arguments", name)
	}

	token := desc.Arguments.Required["netbox_token"]
	assert.Equal(t, "secret", token.Type)
	assert.Equal(t, "--netbox-token", token.Flag)
	assert.Equal(t, []string{"netbox-token"}, token.Legacy)
}

func TestLookupField(t *testing.T) {
	f, ok := LookupField("server_token")
	require.True(t, ok)
	assert.Equal(t, KindSecret, f.Kind)
	assert.True(t, f.Required)

	_, ok = LookupField("server-token")
	assert.False(t, ok)
}
