package plan

import (
	"regexp"
	"strings"
)

// =============================================================================
// Variable Substitution Functions
// =============================================================================

// varPlaceholderRegex matches ${VAR} and ${VAR:-default} patterns.
// Groups:
//   - Group 1: Variable name (required)
//   - Group 2: Default value (optional, after :-)
var varPlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// SubstituteVariables replaces ${VAR} and ${VAR:-default} placeholders with
// values from the variables map.
//
// Behavior:
//   - ${VAR} - replaced with variables["VAR"] if present, otherwise kept as-is
//   - ${VAR:-default} - replaced with variables["VAR"] if present, otherwise "default"
//   - Unmatched text is left unchanged
//
// Examples:
//
//	SubstituteVariables("${DB_HOST}", map[string]string{"DB_HOST": "db"})
//	// Returns: "db"
//
//	SubstituteVariables("${PORT:-8000}", map[string]string{})
//	// Returns: "8000"
//
//	SubstituteVariables("${MISSING}", map[string]string{})
//	// Returns: "${MISSING}"
//
//	SubstituteVariables("redis://${HOST}:${PORT}/0", map[string]string{"HOST": "redis", "PORT": "6379"})
//	// Returns: "redis://redis:6379/0"
func SubstituteVariables(value string, variables map[string]string) string {
	return varPlaceholderRegex.ReplaceAllStringFunc(value, func(match string) string {
		sub := varPlaceholderRegex.FindStringSubmatch(match)
		name := sub[1]
		if val, ok := variables[name]; ok {
			return val
		}
		// A ":-" clause means a default exists, even an empty one
		if strings.Contains(match, ":-") {
			return sub[2]
		}
		return match
	})
}

// SubstituteAll applies SubstituteVariables to every value of a map,
// returning a new map.
func SubstituteAll(values map[string]string, variables map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = SubstituteVariables(v, variables)
	}
	return out
}
