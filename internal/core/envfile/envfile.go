// Package envfile parses and merges .env content for stack variables.
//
// The worker variant's compose document references its credentials and
// connection strings as ${VAR} placeholders; the values conventionally live
// in a .env file next to the deployment. Parsing is delegated to the
// compose-go dotenv implementation so the accepted syntax matches what
// compose itself would read. Reading the file from disk is the caller's
// business; this package sees only content.
package envfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/compose-spec/compose-go/v2/dotenv"
)

// Parse reads env file content from a reader into a variable map.
func Parse(r io.Reader) (map[string]string, error) {
	vars, err := dotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}
	return vars, nil
}

// ParseString parses env file content held in a string.
func ParseString(content string) (map[string]string, error) {
	return Parse(strings.NewReader(content))
}

// Merge combines variable maps with later maps taking precedence.
// The conventional layering is Merge(defaults, envFile, explicit): an
// explicitly supplied variable beats the env file, which beats the
// variant's declared default.
func Merge(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}

// MissingVariables returns the required names that have no value in vars,
// preserving the order of required. Use with compose.RequiredVariables to
// report which placeholders an env file failed to cover.
func MissingVariables(required []string, vars map[string]string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
