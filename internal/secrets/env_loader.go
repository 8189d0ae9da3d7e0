package secrets

import (
	"os"
	"strings"
)

// EnvLoader returns a Loader that reads the named credential variables
// from the process environment. Unset or blank variables are omitted so
// the vault never forwards empty credentials into an agent's environment.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}
