package macros

import "testing"

func TestReplace(t *testing.T) {
	tests := []struct {
		name     string
		template string
		macros   map[string]string
		expected string
	}{
		{
			name:     "hostname in url",
			template: "http://$HOSTNAME$/config",
			macros:   map[string]string{"$HOSTNAME$": "sw1"},
			expected: "http://sw1/config",
		},
		{
			name:     "no macros",
			template: "http://$HOSTNAME$/config",
			macros:   nil,
			expected: "http://$HOSTNAME$/config",
		},
		{
			name:     "unknown macro left alone",
			template: "http://$HOSTADDRESS$/config",
			macros:   map[string]string{"$HOSTNAME$": "sw1"},
			expected: "http://$HOSTADDRESS$/config",
		},
		{
			name:     "repeated macro",
			template: "$HOSTNAME$-$HOSTNAME$",
			macros:   map[string]string{"$HOSTNAME$": "sw1"},
			expected: "sw1-sw1",
		},
		{
			name:     "multiple macros",
			template: "https://$HOSTADDRESS$:8443/render/$HOSTNAME$",
			macros:   map[string]string{"$HOSTNAME$": "sw1", "$HOSTADDRESS$": "10.0.0.1"},
			expected: "https://10.0.0.1:8443/render/sw1",
		},
		{
			name:     "replacement is not rescanned",
			template: "$A$",
			macros:   map[string]string{"$A$": "$B$", "$B$": "x"},
			expected: "$B$",
		},
		{
			name:     "longer name wins",
			template: "$HOST$NAME$",
			macros:   map[string]string{"$HOST$": "h", "$HOST$NAME$": "full"},
			expected: "full",
		},
		{
			name:     "empty template",
			template: "",
			macros:   map[string]string{"$HOSTNAME$": "sw1"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Replace(tt.template, tt.macros)
			if result != tt.expected {
				t.Errorf("Replace(%q) = %q, want %q", tt.template, result, tt.expected)
			}
		})
	}
}
