package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var bracedVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// dollarPlaceholder stands in for an escaped $$ while expanding.
const dollarPlaceholder = "\x00dollar\x00"

// ExpandEnvStrict expands $VAR and ${VAR} in s. A ${VAR} whose variable is
// unset fails with ErrMissingEnv naming every missing variable; a bare $VAR
// expands to "" like os.ExpandEnv.
func ExpandEnvStrict(s string) (string, error) {
	s = strings.ReplaceAll(s, "$$", dollarPlaceholder)

	var missing []string
	for _, m := range bracedVar.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), dollarPlaceholder, "$"), nil
}
