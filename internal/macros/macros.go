// Package macros substitutes host macros such as $HOSTNAME$ in strings.
package macros

import (
	"sort"
	"strings"
)

// HostName is the macro holding the monitored host's canonical name.
const HostName = "$HOSTNAME$"

// Replace substitutes every occurrence of each macro name in template with its
// value. Substitution is a single left-to-right pass: replacement text is
// never scanned again. When two macro names start at the same position the
// longer one wins.
func Replace(template string, macros map[string]string) string {
	if len(macros) == 0 || template == "" {
		return template
	}

	names := make([]string, 0, len(macros))
	for name := range macros {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, name, macros[name])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
