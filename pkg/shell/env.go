package shell

import (
	"os"
	"regexp"
	"strings"
)

// ${NAME} or ${NAME:default}
var envVar = regexp.MustCompile(`\$\{([^{}:]+)(:[^{}]*)?\}`)

// ReplaceEnvVars expands env references in config text.
// Unset variable without default is left as is.
func ReplaceEnvVars(text string) string {
	return envVar.ReplaceAllStringFunc(text, func(match string) string {
		sub := envVar.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(sub[1]); ok {
			return value
		}
		if def, ok := strings.CutPrefix(sub[2], ":"); ok {
			return def
		}
		return match
	})
}
