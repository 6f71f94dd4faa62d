package authorization

import (
	"fmt"
	"regexp"
	"strings"
)

// claimToken matches @claims.<name> references in policy expressions.
var claimToken = regexp.MustCompile(`@claims\.([A-Za-z_][A-Za-z0-9_]*)`)

// processClaims substitutes every @claims.<name> token in the policy with
// the caller's claim value, single-quoted for the SQL layer. A token whose
// claim the identity does not carry is an error: silently dropping it would
// widen the row filter.
func processClaims(policy string, claims map[string]string) (string, error) {
	var missing []string
	resolved := claimToken.ReplaceAllStringFunc(policy, func(token string) string {
		name := strings.TrimPrefix(token, "@claims.")
		value, ok := claims[name]
		if !ok {
			missing = append(missing, name)
			return token
		}
		return quoteLiteral(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedClaim, strings.Join(missing, ", "))
	}
	return resolved, nil
}

// quoteLiteral single-quotes a claim value, doubling embedded quotes.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
